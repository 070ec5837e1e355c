package counter

import (
	"flag"

	"github.com/grafana/globalconf"
)

// SerializeIncrements makes increments of the same series wait on each other within this process.
// Increments from other processes can still race.
var SerializeIncrements bool

func ConfigSetup() {
	fs := flag.NewFlagSet("counter", flag.ExitOnError)
	fs.BoolVar(&SerializeIncrements, "serialize-increments", false, "serialize increments of the same series within this process, so concurrent requests don't read the same latest count")
	globalconf.Register("counter", fs, flag.ExitOnError)
}

package config

import (
	"flag"
	"strings"
	"time"

	"github.com/grafana/globalconf"
	"github.com/grafana/hitcounter/stats"
	"github.com/raintank/dur"
	log "github.com/sirupsen/logrus"
)

var enabled bool
var prefix string
var addr string
var intervalStr string
var interval time.Duration
var bufferSize int
var timeout time.Duration

func ConfigSetup() {
	inStats := flag.NewFlagSet("stats", flag.ExitOnError)
	inStats.BoolVar(&enabled, "enabled", false, "enable sending graphite messages for instrumentation")
	inStats.StringVar(&prefix, "prefix", "hitcounter.stats.default.$instance", "stats prefix (will add trailing dot automatically if needed)")
	inStats.StringVar(&addr, "addr", "localhost:2003", "graphite address")
	inStats.StringVar(&intervalStr, "interval", "10s", "interval at which to send statistics")
	inStats.IntVar(&bufferSize, "buffer-size", 20000, "how many messages (holding all measurements from one interval) to buffer up in case graphite endpoint is unavailable.")
	inStats.DurationVar(&timeout, "timeout", time.Second*10, "timeout after which a write is considered not successful")
	globalconf.Register("stats", inStats, flag.ExitOnError)
}

func ConfigProcess(instance string) {
	if !enabled {
		return
	}
	secs, err := dur.ParseNDuration(intervalStr)
	if err != nil {
		log.Fatalf("stats: could not parse interval %q: %s", intervalStr, err)
	}
	interval = time.Duration(secs) * time.Second
	if addr == "" {
		log.Fatal("stats: addr must be set when stats are enabled")
	}
	prefix = strings.Replace(prefix, "$instance", instance, -1)
}

func Start() {
	if enabled {
		stats.NewMemoryReporter()
		if _, err := stats.NewProcessReporter(); err != nil {
			log.Warnf("stats: can't report process stats: %s", err)
		}
		stats.NewGraphite(prefix, addr, interval, bufferSize, timeout)
	} else {
		stats.NewDevnull()
		log.Warn("running hitcounter without instrumentation.")
	}
}

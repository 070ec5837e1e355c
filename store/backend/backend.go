// Package backend constructs the one store.Store a process is configured to use.
package backend

import (
	"errors"
	"fmt"

	"github.com/grafana/hitcounter/store"
	bigtableStore "github.com/grafana/hitcounter/store/bigtable"
	cassandraStore "github.com/grafana/hitcounter/store/cassandra"
	memoryStore "github.com/grafana/hitcounter/store/memory"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
)

var ErrNoBackend = errors.New("no store backend enabled. enable one of cassandra, bigtable-store or memory-store")

// ConfigSetup registers the flag sets of all store backends
func ConfigSetup() {
	cassandraStore.ConfigSetup()
	bigtableStore.ConfigSetup()
	memoryStore.ConfigSetup()
}

// Enabled returns the names of the enabled backends
func Enabled() []string {
	var names []string
	if cassandraStore.CliConfig.Enabled {
		names = append(names, "cassandra")
	}
	if bigtableStore.CliConfig.Enabled {
		names = append(names, "bigtable-store")
	}
	if memoryStore.Enabled {
		names = append(names, "memory-store")
	}
	return names
}

// Open creates the enabled store. Exactly one backend must be enabled.
func Open(tracer opentracing.Tracer) (store.Store, error) {
	enabled := Enabled()
	switch len(enabled) {
	case 0:
		return nil, ErrNoBackend
	case 1:
	default:
		return nil, fmt.Errorf("only 1 store backend can be enabled at once. got %v", enabled)
	}

	var st store.Store
	var err error
	switch enabled[0] {
	case "cassandra":
		st, err = cassandraStore.NewCassandraStore(cassandraStore.CliConfig)
	case "bigtable-store":
		st, err = bigtableStore.NewStore(bigtableStore.CliConfig)
	case "memory-store":
		log.Warn("using the memory store. all counts are lost on restart")
		st = memoryStore.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", enabled[0], err)
	}
	if tracer != nil {
		st.SetTracer(tracer)
	}
	return st, nil
}

package cassandra

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gocql/gocql"
	"github.com/grafana/hitcounter/stats"
)

// ErrMetrics counts cassandra errors by class
type ErrMetrics struct {
	timeout                  *stats.Counter32
	tooManyTimeouts          *stats.Counter32
	connClosed               *stats.Counter32
	noConns                  *stats.Counter32
	unavailable              *stats.Counter32
	cannotAchieveConsistency *stats.Counter32
	other                    *stats.Counter32
}

func NewErrMetrics(component string) ErrMetrics {
	return ErrMetrics{
		// metric store.cassandra.error.timeout is a counter of timeouts seen to the cassandra store
		timeout: stats.NewCounter32(fmt.Sprintf("%s.error.timeout", component)),
		// metric store.cassandra.error.too-many-timeouts is a counter of how many times we saw too many timeouts and the driver closed the connection
		tooManyTimeouts: stats.NewCounter32(fmt.Sprintf("%s.error.too-many-timeouts", component)),
		// metric store.cassandra.error.conn-closed is a counter of how many times we saw a connection closed to the cassandra store
		connClosed: stats.NewCounter32(fmt.Sprintf("%s.error.conn-closed", component)),
		// metric store.cassandra.error.no-connections is a counter of how many times we had no connections remaining to the cassandra store
		noConns: stats.NewCounter32(fmt.Sprintf("%s.error.no-connections", component)),
		// metric store.cassandra.error.unavailable is a counter of how many times the cassandra store was unavailable
		unavailable: stats.NewCounter32(fmt.Sprintf("%s.error.unavailable", component)),
		// metric store.cassandra.error.cannot-achieve-consistency is a counter of queries that could not achieve the requested consistency
		cannotAchieveConsistency: stats.NewCounter32(fmt.Sprintf("%s.error.cannot-achieve-consistency", component)),
		// metric store.cassandra.error.other is a counter of other errors talking to the cassandra store
		other: stats.NewCounter32(fmt.Sprintf("%s.error.other", component)),
	}
}

func (m *ErrMetrics) Inc(err error) {
	m.counterFor(err).Inc()
}

func (m *ErrMetrics) counterFor(err error) *stats.Counter32 {
	switch {
	case errors.Is(err, gocql.ErrTimeoutNoResponse):
		return m.timeout
	case errors.Is(err, gocql.ErrTooManyTimeouts):
		return m.tooManyTimeouts
	case errors.Is(err, gocql.ErrConnectionClosed):
		return m.connClosed
	case errors.Is(err, gocql.ErrNoConnections):
		return m.noConns
	case errors.Is(err, gocql.ErrUnavailable):
		return m.unavailable
	case strings.HasPrefix(err.Error(), "Cannot achieve consistency level"):
		return m.cannotAchieveConsistency
	}
	return m.other
}

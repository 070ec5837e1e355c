package cassandra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gocql/gocql"
	"github.com/grafana/hitcounter/stats"
)

func TestErrMetricsClassification(t *testing.T) {
	m := NewErrMetrics("test.cassandra")
	cases := map[string]struct {
		err error
		exp *stats.Counter32
	}{
		"timeout":         {gocql.ErrTimeoutNoResponse, m.timeout},
		"wrapped timeout": {fmt.Errorf("reading: %w", gocql.ErrTimeoutNoResponse), m.timeout},
		"no connections":  {gocql.ErrNoConnections, m.noConns},
		"unavailable":     {gocql.ErrUnavailable, m.unavailable},
		"consistency":     {errors.New("Cannot achieve consistency level QUORUM"), m.cannotAchieveConsistency},
		"other":           {errors.New("syntax error"), m.other},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			got := m.counterFor(c.err)
			if got != c.exp {
				t.Fatalf("%q counted under the wrong metric", c.err)
			}
			before := got.Peek()
			m.Inc(c.err)
			if got.Peek() != before+1 {
				t.Fatalf("expected counter to be incremented")
			}
		})
	}
}

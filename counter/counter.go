// Package counter implements the hit counters on top of a store:
// incrementing a series by reading its latest sample and appending the next one,
// and reading back a trailing window of samples.
package counter

import (
	"context"
	"sync"
	"time"

	"github.com/grafana/hitcounter/clock"
	"github.com/grafana/hitcounter/series"
	"github.com/grafana/hitcounter/stats"
	"github.com/grafana/hitcounter/store"
	log "github.com/sirupsen/logrus"
)

var (
	// metric counter.increments is how many increments were requested
	increments = stats.NewCounter32("counter.increments")
	// metric counter.latest.fail is how many increments could not read the latest count, and started from 0
	latestFail = stats.NewCounter32("counter.latest.fail")
	// metric counter.append.fail is how many increments could not persist their sample
	appendFail = stats.NewCounter32("counter.append.fail")
	// metric counter.increment.duration is how long an increment takes, including both store calls
	incrementDuration = stats.NewLatencyHistogram15s32("counter.increment.duration")
	// metric counter.window.points is how many points window queries return
	windowPoints = stats.NewMeter32("counter.window.points", true)
	// metric counter.window.fail is how many window queries failed
	windowFail = stats.NewCounter32("counter.window.fail")
)

// Service counts hits per series, keeping every count as a sample in the store
type Service struct {
	store store.Store
	clock clock.Clock

	serialize bool
	locksMu   sync.Mutex
	locks     map[series.ID]*sync.Mutex
}

// New creates a Service. The Service holds no state of its own besides
// the optional per-series locks; all counts live in st.
func New(st store.Store, clk clock.Clock, serialize bool) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		store:     st,
		clock:     clk,
		serialize: serialize,
		locks:     make(map[series.ID]*sync.Mutex),
	}
}

func (s *Service) lock(id series.ID) func() {
	if !s.serialize {
		return func() {}
	}
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.locksMu.Unlock()
	l.Lock()
	return l.Unlock
}

// IncrementAndRecord records one more hit for the series and returns the new count.
// It never fails: if the latest count can't be read, counting restarts from 0.
// If the new sample can't be persisted, the count that was read is returned.
func (s *Service) IncrementAndRecord(ctx context.Context, id series.ID) uint64 {
	pre := time.Now()
	increments.Inc()
	unlock := s.lock(id)
	defer unlock()

	latest, found, err := s.store.GetLatest(ctx, id)
	if err != nil {
		latestFail.Inc()
		log.Warnf("counter: could not read latest count of %s, counting from 0: %s", id, err)
		latest, found = series.Sample{}, false
	}
	var prev uint64
	if found {
		prev = latest.Count
	}

	sample := series.Sample{
		Series: id,
		Ts:     uint32(s.clock.Now().Unix()),
		Count:  prev + 1,
	}
	err = s.store.Append(ctx, sample)
	incrementDuration.Value(time.Since(pre))
	if err != nil {
		appendFail.Inc()
		log.Errorf("counter: could not record %s, returning previous count %d: %s", sample, prev, err)
		return prev
	}
	return sample.Count
}

// QueryWindow returns the points of the series recorded in the last window seconds, oldest first.
// The window is relative to the service's clock.
func (s *Service) QueryWindow(ctx context.Context, id series.ID, window uint32) ([]series.Point, error) {
	now := uint32(s.clock.Now().Unix())
	var since uint32
	if window < now {
		since = now - window
	}

	it, err := s.store.QueryRange(ctx, id, since, series.Ascending)
	if err != nil {
		windowFail.Inc()
		return nil, err
	}
	points := make([]series.Point, 0)
	for it.Next() {
		points = append(points, it.At().Point())
	}
	if err := it.Close(); err != nil {
		windowFail.Inc()
		return nil, err
	}
	windowPoints.Value(len(points))
	return points, nil
}

// Latest returns the most recent point of the series, if any. Errors are returned as is.
func (s *Service) Latest(ctx context.Context, id series.ID) (series.Point, bool, error) {
	latest, found, err := s.store.GetLatest(ctx, id)
	if err != nil || !found {
		return series.Point{}, false, err
	}
	return latest.Point(), true, nil
}

// Package memory is an in-process store backed by an ordered B-tree.
// Nothing is persisted across restarts; it is meant for development and tests.
package memory

import (
	"context"
	"flag"
	"math"
	"sync"

	"github.com/google/btree"
	"github.com/grafana/globalconf"
	"github.com/grafana/hitcounter/series"
	"github.com/grafana/hitcounter/stats"
	"github.com/grafana/hitcounter/store"
	"github.com/grafana/hitcounter/tracing"
	opentracing "github.com/opentracing/opentracing-go"
)

const backend = "memory"

var (
	// metric store.memory.samples is how many samples the memory store holds
	samplesHeld = stats.NewGauge32("store.memory.samples")
)

var Enabled bool

func ConfigSetup() *flag.FlagSet {
	mem := flag.NewFlagSet("memory-store", flag.ExitOnError)
	mem.BoolVar(&Enabled, "enabled", false, "use the in-memory store (data is lost on restart)")
	globalconf.Register("memory-store", mem, flag.ExitOnError)
	return mem
}

// item is a stored sample. seq breaks ties between samples sharing a timestamp,
// in insertion order.
type item struct {
	series.Sample
	seq uint64
}

func less(a, b item) bool {
	if a.Series != b.Series {
		return a.Series < b.Series
	}
	if a.Ts != b.Ts {
		return a.Ts < b.Ts
	}
	return a.seq < b.seq
}

type Store struct {
	sync.RWMutex
	tree    *btree.BTreeG[item]
	seq     uint64
	stopped bool
	tracer  opentracing.Tracer
}

func New() *Store {
	return &Store{
		tree:   btree.NewG[item](16, less),
		tracer: opentracing.NoopTracer{},
	}
}

func (s *Store) SetTracer(t opentracing.Tracer) {
	s.tracer = t
}

func (s *Store) Stop() {
	s.Lock()
	s.stopped = true
	s.Unlock()
}

// last returns the greatest possible key for a series
func last(id series.ID) item {
	return item{Sample: series.Sample{Series: id, Ts: math.MaxUint32}, seq: math.MaxUint64}
}

func (s *Store) GetLatest(ctx context.Context, id series.ID) (series.Sample, bool, error) {
	_, span := tracing.NewSpan(ctx, s.tracer, "MemoryStore.GetLatest")
	defer span.Finish()
	tracing.TagSeries(span, id)

	if err := ctx.Err(); err != nil {
		return series.Sample{}, false, store.NewError(backend, "GetLatest", err)
	}
	s.RLock()
	defer s.RUnlock()
	if s.stopped {
		return series.Sample{}, false, store.NewError(backend, "GetLatest", store.ErrStopped)
	}
	var latest series.Sample
	var found bool
	s.tree.DescendLessOrEqual(last(id), func(it item) bool {
		if it.Series == id {
			latest, found = it.Sample, true
		}
		return false
	})
	return latest, found, nil
}

func (s *Store) Append(ctx context.Context, sample series.Sample) error {
	_, span := tracing.NewSpan(ctx, s.tracer, "MemoryStore.Append")
	defer span.Finish()
	tracing.TagSeries(span, sample.Series)

	if err := ctx.Err(); err != nil {
		return store.NewError(backend, "Append", err)
	}
	s.Lock()
	defer s.Unlock()
	if s.stopped {
		return store.NewError(backend, "Append", store.ErrStopped)
	}
	s.seq++
	s.tree.ReplaceOrInsert(item{Sample: sample, seq: s.seq})
	samplesHeld.SetUint32(uint32(s.tree.Len()))
	return nil
}

// QueryRange iterates over a snapshot of the tree taken at call time.
// appends that happen during iteration are not visible to it.
func (s *Store) QueryRange(ctx context.Context, id series.ID, from uint32, order series.Order) (store.Iter, error) {
	_, span := tracing.NewSpan(ctx, s.tracer, "MemoryStore.QueryRange")
	defer span.Finish()
	tracing.TagSeries(span, id)
	tracing.TagRange(span, from, order)

	if err := ctx.Err(); err != nil {
		return nil, store.NewError(backend, "QueryRange", err)
	}
	s.Lock()
	defer s.Unlock()
	if s.stopped {
		return nil, store.NewError(backend, "QueryRange", store.ErrStopped)
	}
	return &iter{
		ctx:   ctx,
		tree:  s.tree.Clone(),
		id:    id,
		from:  from,
		order: order,
	}, nil
}

// iter walks the snapshot one tree lookup at a time
type iter struct {
	ctx     context.Context
	tree    *btree.BTreeG[item]
	id      series.ID
	from    uint32
	order   series.Order
	cur     item
	started bool
	done    bool
	err     error
}

func (i *iter) Next() bool {
	if i.done {
		return false
	}
	if err := i.ctx.Err(); err != nil {
		i.err = store.NewError(backend, "QueryRange", err)
		i.done = true
		return false
	}
	next, ok := i.step()
	if !ok || next.Series != i.id || next.Ts < i.from {
		i.done = true
		return false
	}
	i.cur = next
	i.started = true
	return true
}

// step finds the item following the current one in iteration order
func (i *iter) step() (item, bool) {
	var next item
	var found bool
	if i.order == series.Ascending {
		pivot := item{Sample: series.Sample{Series: i.id, Ts: i.from}}
		if i.started {
			pivot = i.cur
		}
		i.tree.AscendGreaterOrEqual(pivot, func(it item) bool {
			if i.started && !less(i.cur, it) {
				return true
			}
			next, found = it, true
			return false
		})
		return next, found
	}
	pivot := last(i.id)
	if i.started {
		pivot = i.cur
	}
	i.tree.DescendLessOrEqual(pivot, func(it item) bool {
		if i.started && !less(it, i.cur) {
			return true
		}
		next, found = it, true
		return false
	})
	return next, found
}

func (i *iter) At() series.Sample {
	return i.cur.Sample
}

func (i *iter) Close() error {
	i.done = true
	i.tree = nil
	return i.err
}

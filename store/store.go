// Package store defines how hit samples are persisted and read back.
// Backends live in the subpackages (cassandra, bigtable, memory).
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/grafana/hitcounter/series"
	opentracing "github.com/opentracing/opentracing-go"
)

// ErrStopped is returned by operations on a store after Stop was called
var ErrStopped = errors.New("store is stopped")

// Store is a sorted key-value store of samples, keyed by (series, timestamp)
type Store interface {
	// GetLatest returns the sample with the greatest timestamp for the series.
	// found is false if the series has no samples, which is not an error.
	GetLatest(ctx context.Context, id series.ID) (sample series.Sample, found bool, err error)
	// Append durably persists one sample. It is not idempotent.
	Append(ctx context.Context, sample series.Sample) error
	// QueryRange returns all samples of the series with Ts >= from, in the given order
	QueryRange(ctx context.Context, id series.ID, from uint32, order series.Order) (Iter, error)
	SetTracer(t opentracing.Tracer)
	Stop()
}

// Iter is a lazy, single-pass iterator over samples.
// Errors encountered while iterating end the iteration and are returned by Close.
type Iter interface {
	Next() bool
	At() series.Sample
	Close() error
}

// Error is a failure of the store backend to serve a request
type Error struct {
	Backend string
	Op      string
	Err     error
}

func NewError(backend, op string, err error) *Error {
	return &Error{
		Backend: backend,
		Op:      op,
		Err:     err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s store: %s failed: %s", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsError returns whether err is, or wraps, a store Error
func IsError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// Collect drains the iterator and closes it
func Collect(it Iter) ([]series.Sample, error) {
	out := make([]series.Sample, 0)
	for it.Next() {
		out = append(out, it.At())
	}
	return out, it.Close()
}

// SliceIter iterates over a slice of samples that is already in the desired order
type SliceIter struct {
	samples []series.Sample
	pos     int
	err     error
}

func NewSliceIter(samples []series.Sample) *SliceIter {
	return &SliceIter{
		samples: samples,
		pos:     -1,
	}
}

func (s *SliceIter) Next() bool {
	if s.pos+1 >= len(s.samples) {
		s.pos = len(s.samples)
		return false
	}
	s.pos++
	return true
}

func (s *SliceIter) At() series.Sample {
	return s.samples[s.pos]
}

func (s *SliceIter) Close() error {
	s.samples = nil
	return s.err
}

// ErrIter is an iterator that yields nothing and returns err on Close
func ErrIter(err error) *SliceIter {
	return &SliceIter{err: err}
}

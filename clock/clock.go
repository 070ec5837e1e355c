// Package clock provides the time sources used across hitcounter:
// a Clock interface so timestamps can be controlled in tests,
// and aligned tickers for periodic reporting.
// An aligned ticker ticks at even multiples of its period (e.g. shortly after each
// unix timestamp divisible by 10s for period=10s), and always delivers those ideal values.
package clock

import (
	"sync"
	"time"
)

// Clock tells the current time
type Clock interface {
	Now() time.Time
}

// Real is the wall clock
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// Manual is a Clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	sync.Mutex
	now time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() time.Time {
	m.Lock()
	defer m.Unlock()
	return m.now
}

func (m *Manual) Set(now time.Time) {
	m.Lock()
	m.now = now
	m.Unlock()
}

func (m *Manual) Advance(d time.Duration) {
	m.Lock()
	m.now = m.now.Add(d)
	m.Unlock()
}

// AlignedTickLossy returns an aligned ticker that drops ticks
// if the consumer is slow or the clock jumps forward
func AlignedTickLossy(period time.Duration) <-chan time.Time {
	c := make(chan time.Time)
	go func() {
		for {
			now := time.Now()
			diff := period - (time.Duration(now.UnixNano()) % period)
			ideal := now.Add(diff)
			time.Sleep(diff)
			select {
			case c <- ideal:
			default:
			}
		}
	}()
	return c
}

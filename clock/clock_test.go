package clock

import (
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	start := time.Unix(1700000000, 0)
	m := NewManual(start)
	if !m.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, m.Now())
	}
	m.Advance(90 * time.Second)
	if got := m.Now().Unix(); got != 1700000090 {
		t.Fatalf("expected 1700000090 after advancing, got %d", got)
	}
	m.Set(time.Unix(5, 0))
	if got := m.Now().Unix(); got != 5 {
		t.Fatalf("expected 5 after set, got %d", got)
	}
}

func TestAlignedTickLossy(t *testing.T) {
	period := 100 * time.Millisecond
	tick := AlignedTickLossy(period)
	select {
	case v := <-tick:
		if v.UnixNano()%int64(period) != 0 {
			t.Fatalf("tick %v is not aligned to %v", v, period)
		}
	case <-time.After(3 * period):
		t.Fatal("did not get a tick on time")
	}
}

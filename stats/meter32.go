package stats

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dgryski/go-linlog"
)

// Meter32 keeps a histogram of 32bit values and reports summary statistics of it.
// when approx is set, values are grouped into linear-log bins (up to ~6% error)
// so that the histogram stays small for widely spread values such as window sizes.
type Meter32 struct {
	approx bool

	sync.Mutex
	hist  map[uint32]uint32
	min   uint32
	max   uint32
	count uint32
	since time.Time
}

func NewMeter32(name string, approx bool) *Meter32 {
	return registry.getOrAdd(name, &Meter32{
		approx: approx,
		hist:   make(map[uint32]uint32),
		min:    math.MaxUint32,
		since:  time.Now(),
	}).(*Meter32)
}

func (m *Meter32) reset() {
	m.hist = make(map[uint32]uint32)
	m.min = math.MaxUint32
	m.max = 0
	m.count = 0
}

func (m *Meter32) Value(val int) {
	m.ValueUint32(uint32(val))
}

func (m *Meter32) ValueUint32(val uint32) {
	bin := val
	if m.approx {
		b, _ := linlog.BinOf(uint64(val), 4, 2)
		bin = uint32(b)
	}
	m.Lock()
	if val < m.min {
		m.min = val
	}
	if val > m.max {
		m.max = val
	}
	m.hist[bin]++
	m.count++
	m.Unlock()
}

var meterQuantiles = []struct {
	q   float64
	key string
}{
	{0.50, "median.gauge32"},
	{0.75, "p75.gauge32"},
	{0.90, "p90.gauge32"},
}

func (m *Meter32) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	m.Lock()
	defer m.Unlock()
	if m.count == 0 {
		return buf
	}
	bins := make([]uint32, 0, len(m.hist))
	for b := range m.hist {
		bins = append(bins, b)
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i] < bins[j] })

	var seen uint32
	var sum uint64
	qi := 0
	for _, b := range bins {
		seen += m.hist[b]
		sum += uint64(m.hist[b]) * uint64(b)
		frac := float64(seen) / float64(m.count)
		for qi < len(meterQuantiles) && meterQuantiles[qi].q <= frac {
			buf = WriteUint32(buf, prefix, []byte(meterQuantiles[qi].key), b, now)
			qi++
		}
	}

	buf = WriteUint32(buf, prefix, []byte("min.gauge32"), m.min, now)
	buf = WriteUint32(buf, prefix, []byte("mean.gauge32"), uint32(sum/uint64(m.count)), now)
	buf = WriteUint32(buf, prefix, []byte("max.gauge32"), m.max, now)
	buf = WriteUint32(buf, prefix, []byte("values.count32"), m.count, now)
	if elapsed := now.Sub(m.since).Seconds(); elapsed > 0 {
		buf = WriteFloat64(buf, prefix, []byte("values.rate32"), float64(m.count)/elapsed, now)
	}
	m.since = now
	m.reset()
	return buf
}

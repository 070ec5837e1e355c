package bigtable

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/grafana/hitcounter/series"
)

// Row keys are "<series>#<inverted ts>#<inverted nanos>", zero padded so that
// lexical order is numeric order. Inverting makes the newest sample of a series
// its first row, which bigtable can read cheaply; the nanos keep samples of
// the same second apart, latest append first.
const (
	family = "c"
	column = "count"
	sep    = "#"
)

func seriesPrefix(id series.ID) string {
	return string(id) + sep
}

func formatRowKey(id series.ID, ts uint32, nanos int64) string {
	return fmt.Sprintf("%s%010d%s%019d", seriesPrefix(id), math.MaxUint32-ts, sep, math.MaxInt64-nanos)
}

// rangeEnd is the exclusive end of the rows of id with a timestamp >= from
func rangeEnd(id series.ID, from uint32) string {
	return fmt.Sprintf("%s%010d", seriesPrefix(id), uint64(math.MaxUint32-from)+1)
}

func parseRowKey(key string) (series.ID, uint32, error) {
	parts := strings.Split(key, sep)
	if len(parts) != 3 {
		return "", 0, fmt.Errorf("invalid row key %q", key)
	}
	inv, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid timestamp in row key %q: %w", key, err)
	}
	return series.ID(parts[0]), uint32(math.MaxUint32 - inv), nil
}

func encodeCount(count uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, count)
	return buf
}

func decodeCount(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid count value of %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// nanoSource hands out strictly increasing unix nanos, even when the clock
// doesn't advance between calls
type nanoSource struct {
	last int64
}

func (n *nanoSource) next() int64 {
	for {
		last := atomic.LoadInt64(&n.last)
		now := time.Now().UnixNano()
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&n.last, last, now) {
			return now
		}
	}
}

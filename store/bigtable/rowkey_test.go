package bigtable

import (
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/grafana/hitcounter/series"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRowKeyOrdering(t *testing.T) {
	Convey("Given row keys of one series", t, func() {
		older := formatRowKey(series.Status, 100, 5)
		newer := formatRowKey(series.Status, 200, 1)
		sameSecondFirst := formatRowKey(series.Status, 200, 10)
		sameSecondSecond := formatRowKey(series.Status, 200, 20)

		Convey("newer timestamps sort first", func() {
			So(newer, ShouldBeLessThan, older)
		})
		Convey("within a second, later appends sort first", func() {
			So(sameSecondSecond, ShouldBeLessThan, sameSecondFirst)
		})
		Convey("all keys share the series prefix", func() {
			for _, k := range []string{older, newer, sameSecondFirst} {
				So(strings.HasPrefix(k, seriesPrefix(series.Status)), ShouldBeTrue)
			}
		})
		Convey("the status prefix does not match secure-status rows", func() {
			other := formatRowKey(series.SecureStatus, 200, 1)
			So(strings.HasPrefix(other, seriesPrefix(series.Status)), ShouldBeFalse)
		})
	})

	Convey("sorting keys yields descending timestamps", t, func() {
		tss := []uint32{0, 9, 10, 99, 100, 1700000000, math.MaxUint32}
		keys := make([]string, 0, len(tss))
		for i, ts := range tss {
			keys = append(keys, formatRowKey(series.Status, ts, int64(i)))
		}
		sort.Strings(keys)
		for i, k := range keys {
			_, ts, err := parseRowKey(k)
			So(err, ShouldBeNil)
			So(ts, ShouldEqual, tss[len(tss)-1-i])
		}
	})
}

func TestRangeEnd(t *testing.T) {
	Convey("the range end includes exactly the rows with ts >= from", t, func() {
		from := uint32(1000)
		end := rangeEnd(series.Status, from)
		So(formatRowKey(series.Status, from, math.MaxInt64), ShouldBeLessThan, end)
		So(formatRowKey(series.Status, from, 0), ShouldBeLessThan, end)
		So(formatRowKey(series.Status, from+1, 0), ShouldBeLessThan, end)
		So(formatRowKey(series.Status, from-1, 0), ShouldBeGreaterThanOrEqualTo, end)
	})
	Convey("from 0 includes the oldest possible row", t, func() {
		end := rangeEnd(series.Status, 0)
		So(formatRowKey(series.Status, 0, 0), ShouldBeLessThan, end)
	})
}

func TestParseRowKey(t *testing.T) {
	id, ts, err := parseRowKey(formatRowKey(series.SecureStatus, 1700000000, 42))
	if err != nil || id != series.SecureStatus || ts != 1700000000 {
		t.Fatalf("unexpected parse result %q %d %v", id, ts, err)
	}
	for _, bad := range []string{"", "status", "status#abc#0", "status#1#2#3"} {
		if _, _, err := parseRowKey(bad); err == nil {
			t.Errorf("expected error parsing %q", bad)
		}
	}
}

func TestCountEncoding(t *testing.T) {
	for _, c := range []uint64{0, 1, 255, 256, math.MaxUint64} {
		got, err := decodeCount(encodeCount(c))
		if err != nil || got != c {
			t.Errorf("count %d came back as %d (%v)", c, got, err)
		}
	}
	if _, err := decodeCount([]byte{1, 2}); err == nil {
		t.Errorf("expected error decoding short value")
	}
}

func TestNanoSourceIncreases(t *testing.T) {
	var n nanoSource
	prev := n.next()
	for i := 0; i < 1000; i++ {
		cur := n.next()
		if cur <= prev {
			t.Fatalf("nanos went from %d to %d", prev, cur)
		}
		prev = cur
	}
}

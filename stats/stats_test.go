package stats

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Unix(1700000000, 0)

func lines(buf []byte) []string {
	return strings.Split(strings.TrimSuffix(string(buf), "\n"), "\n")
}

func TestWriters(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		exp  string
	}{
		{"uint32", WriteUint32(nil, []byte("hc."), []byte("a.counter32"), 42, now), "hc.a.counter32 42 1700000000\n"},
		{"int32", WriteInt32(nil, []byte("hc."), []byte("b.gauge32"), -3, now), "hc.b.gauge32 -3 1700000000\n"},
		{"uint64", WriteUint64(nil, []byte("hc."), []byte("c.counter64"), 1<<40, now), "hc.c.counter64 1099511627776 1700000000\n"},
		{"float64", WriteFloat64(nil, []byte("hc."), []byte("d.rate32"), 1.5, now), "hc.d.rate32 1.5 1700000000\n"},
		{"appends", WriteUint32([]byte("x 1 1\n"), []byte("hc."), []byte("e"), 0, now), "x 1 1\nhc.e 0 1700000000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.buf) != tt.exp {
				t.Errorf("expected %q, got %q", tt.exp, tt.buf)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry", t, func() {
		r := NewRegistry()
		c := r.getOrAdd("api.request.status", &Counter32{}).(*Counter32)

		Convey("asking for the same name and type returns the same metric", func() {
			again := r.getOrAdd("api.request.status", &Counter32{}).(*Counter32)
			So(again, ShouldPointTo, c)
			So(r.Names(), ShouldResemble, []string{"api.request.status"})
		})
		Convey("asking for the same name with another type panics", func() {
			So(func() { r.getOrAdd("api.request.status", &Gauge32{}) }, ShouldPanic)
		})
		Convey("Clear forgets everything", func() {
			r.Clear()
			So(r.Names(), ShouldBeEmpty)
		})
	})
}

func TestRange32(t *testing.T) {
	r := &Range32{min: 1<<32 - 1}
	if buf := r.ReportGraphite([]byte("r."), nil, now); len(buf) != 0 {
		t.Fatalf("expected nothing to be reported without values, got %q", buf)
	}
	for _, v := range []int{5, 2, 9} {
		r.Value(v)
	}
	got := lines(r.ReportGraphite([]byte("r."), nil, now))
	exp := []string{
		"r.min.gauge32 2 1700000000",
		"r.max.gauge32 9 1700000000",
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if buf := r.ReportGraphite([]byte("r."), nil, now); len(buf) != 0 {
		t.Fatalf("expected range to be reset after reporting, got %q", buf)
	}
}

func TestMeter32(t *testing.T) {
	m := &Meter32{
		hist:  make(map[uint32]uint32),
		min:   1<<32 - 1,
		since: now.Add(-10 * time.Second),
	}
	for v := 1; v <= 10; v++ {
		m.Value(v)
	}
	got := lines(m.ReportGraphite([]byte("m."), nil, now))
	exp := []string{
		"m.median.gauge32 5 1700000000",
		"m.p75.gauge32 8 1700000000",
		"m.p90.gauge32 9 1700000000",
		"m.min.gauge32 1 1700000000",
		"m.mean.gauge32 5 1700000000",
		"m.max.gauge32 10 1700000000",
		"m.values.count32 10 1700000000",
		"m.values.rate32 1 1700000000",
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if buf := m.ReportGraphite([]byte("m."), nil, now); len(buf) != 0 {
		t.Fatalf("expected meter to be reset after reporting, got %q", buf)
	}
}

func TestBoolAndCounter(t *testing.T) {
	Convey("Bool reports 0 or 1", t, func() {
		b := &Bool{}
		So(string(b.ReportGraphite([]byte("b."), nil, now)), ShouldEqual, "b.gauge1 0 1700000000\n")
		b.Set(true)
		So(b.Peek(), ShouldBeTrue)
		So(string(b.ReportGraphite([]byte("b."), nil, now)), ShouldEqual, "b.gauge1 1 1700000000\n")
	})
	Convey("Counter32 keeps counting across reports", t, func() {
		c := &Counter32{}
		c.Inc()
		c.Add(4)
		So(string(c.ReportGraphite([]byte("c."), nil, now)), ShouldEqual, "c.counter32 5 1700000000\n")
		So(c.Peek(), ShouldEqual, uint32(5))
	})
}

func TestGraphiteGenerate(t *testing.T) {
	NewCounter32("test.generate.hits").Add(3)
	g := &Graphite{prefix: []byte("hitcounter.stats.default.")}
	buf := g.generate(now)
	exp := "hitcounter.stats.default.test.generate.hits.counter32 3 1700000000"
	for _, l := range lines(buf) {
		if l == exp {
			return
		}
	}
	t.Fatalf("expected line %q in %q", exp, buf)
}

func TestProcessReporter(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("no /proc on this system")
	}
	p, err := NewProcessReporter()
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	buf := p.ReportGraphite([]byte("process."), nil, now)
	if !strings.Contains(string(buf), "process.resident_memory_bytes.gauge64 ") {
		t.Fatalf("expected rss to be reported, got %q", buf)
	}
}

package stats

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

// MemoryReporter reports runtime memory and GC statistics
type MemoryReporter struct {
	mem           runtime.MemStats
	gcCyclesTotal uint32
}

func NewMemoryReporter() *MemoryReporter {
	return registry.getOrAdd("memory", &MemoryReporter{}).(*MemoryReporter)
}

// gcPercent mirrors how the runtime interprets GOGC
func gcPercent() int {
	gogc := os.Getenv("GOGC")
	switch gogc {
	case "":
		return 100
	case "off":
		return -1
	}
	val, err := strconv.Atoi(gogc)
	if err != nil {
		return 100
	}
	return val
}

func (m *MemoryReporter) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	runtime.ReadMemStats(&m.mem)

	// metric memory.total_bytes_allocated is a counter of total number of bytes allocated during process lifetime
	buf = WriteUint64(buf, prefix, []byte("total_bytes_allocated.counter64"), m.mem.TotalAlloc, now)
	// metric memory.bytes.allocated_in_heap is a gauge of currently allocated heap memory
	buf = WriteUint64(buf, prefix, []byte("bytes.allocated_in_heap.gauge64"), m.mem.Alloc, now)
	// metric memory.bytes.obtained_from_sys is what the heap profile trigger looks at
	buf = WriteUint64(buf, prefix, []byte("bytes.obtained_from_sys.gauge64"), m.mem.Sys, now)
	buf = WriteUint32(buf, prefix, []byte("total_gc_cycles.counter64"), m.mem.NumGC, now)
	buf = WriteUint64(buf, prefix, []byte("gc.heap_objects.gauge64"), m.mem.HeapObjects, now)

	// only report a pause when a GC actually ran since the last report
	if m.gcCyclesTotal != m.mem.NumGC {
		buf = WriteUint64(buf, prefix, []byte("gc.last_duration.gauge64"), m.mem.PauseNs[(m.mem.NumGC+255)%256], now)
		m.gcCyclesTotal = m.mem.NumGC
	}

	buf = WriteInt32(buf, prefix, []byte("gc.gogc.sgauge32"), int32(gcPercent()), now)
	return buf
}

package stats

import (
	"os"
	"time"

	"github.com/prometheus/procfs"
)

// ProcessReporter reports resource usage of this process, as read from /proc
type ProcessReporter struct {
	proc procfs.Proc
}

// NewProcessReporter fails on systems without /proc
func NewProcessReporter() (*ProcessReporter, error) {
	proc, err := procfs.NewProc(os.Getpid())
	if err != nil {
		return nil, err
	}
	return registry.getOrAdd("process", &ProcessReporter{proc: proc}).(*ProcessReporter), nil
}

func (p *ProcessReporter) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	if stat, err := p.proc.NewStat(); err == nil {
		// metric process.resident_memory_bytes.gauge64 is a gauge of the process RSS from /proc/pid/stat
		buf = WriteUint64(buf, prefix, []byte("resident_memory_bytes.gauge64"), uint64(stat.ResidentMemory()), now)
		// metric process.virtual_memory_bytes.gauge64 is a gauge of the process VSZ from /proc/pid/stat
		buf = WriteUint64(buf, prefix, []byte("virtual_memory_bytes.gauge64"), uint64(stat.VirtualMemory()), now)
		// metric process.cpu_seconds_total.counter64 is the user and system cpu time spent
		buf = WriteFloat64(buf, prefix, []byte("cpu_seconds_total.counter64"), stat.CPUTime(), now)
	}
	// store clients and http connections each hold a descriptor
	if fds, err := p.proc.FileDescriptorsLen(); err == nil {
		// metric process.open_fds.gauge32 is how many file descriptors the process has open
		buf = WriteUint32(buf, prefix, []byte("open_fds.gauge32"), uint32(fds), now)
	}
	return buf
}

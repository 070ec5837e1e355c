package stats

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"

	"github.com/grafana/hitcounter/clock"
	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"
)

var (
	queueItems      *Range32
	genDataDuration *Gauge32
	flushDuration   *LatencyHistogram15s32
	messageSize     *Gauge32
	connected       *Bool
)

type GraphiteMetric interface {
	// ReportGraphite appends the measurements in graphite format to buf,
	// and resets them for the next interval if needed
	ReportGraphite(prefix []byte, buf []byte, now time.Time) []byte
}

type Graphite struct {
	prefix []byte
	addr   string

	timeout    time.Duration
	toGraphite chan []byte
}

func NewGraphite(prefix, addr string, interval time.Duration, bufferSize int, timeout time.Duration) {
	if len(prefix) != 0 && prefix[len(prefix)-1] != '.' {
		prefix = prefix + "."
	}
	NewGauge32("stats.graphite.write_queue.size").Set(bufferSize)
	queueItems = NewRange32("stats.graphite.write_queue.items")
	// metric stats.generate_message.duration is how long it takes to generate the stats
	genDataDuration = NewGauge32("stats.generate_message.duration")
	flushDuration = NewLatencyHistogram15s32("stats.graphite.flush")
	messageSize = NewGauge32("stats.message_size")
	connected = NewBool("stats.graphite.connected")

	g := &Graphite{
		prefix:     []byte(prefix),
		addr:       addr,
		toGraphite: make(chan []byte, bufferSize),
		timeout:    timeout,
	}
	go g.writer()
	go g.reporter(interval)
}

func (g *Graphite) reporter(interval time.Duration) {
	for now := range clock.AlignedTickLossy(interval) {
		queueItems.Value(len(g.toGraphite))
		if cap(g.toGraphite) != 0 && len(g.toGraphite) == cap(g.toGraphite) {
			// buffer is full, no use generating a message
			continue
		}
		pre := time.Now()
		buf := g.generate(now)
		genDataDuration.Set(int(time.Since(pre).Nanoseconds()))
		messageSize.Set(len(buf))
		g.toGraphite <- buf
		queueItems.Value(len(g.toGraphite))
	}
}

func (g *Graphite) generate(now time.Time) []byte {
	buf := make([]byte, 0)
	var fullPrefix bytes.Buffer
	for name, metric := range registry.list() {
		fullPrefix.Reset()
		fullPrefix.Write(g.prefix)
		fullPrefix.WriteString(name)
		fullPrefix.WriteRune('.')
		buf = metric.ReportGraphite(fullPrefix.Bytes(), buf, now)
	}
	return buf
}

// writer connects to graphite and submits all pending data to it
func (g *Graphite) writer() {
	var conn net.Conn
	var err error
	var wg sync.WaitGroup

	b := &backoff.Backoff{
		Min:    time.Second,
		Max:    time.Minute,
		Factor: 1.5,
		Jitter: true,
	}

	assureConn := func() {
		connected.Set(conn != nil)
		for conn == nil {
			conn, err = net.DialTimeout("tcp", g.addr, g.timeout)
			if err == nil {
				log.Infof("stats: now connected to %s", g.addr)
				b.Reset()
				wg.Add(1)
				go g.checkEOF(conn, &wg)
			} else {
				dur := b.Duration()
				log.Warnf("stats: dialing %s failed: %s. will retry in %s", g.addr, err.Error(), dur)
				time.Sleep(dur)
			}
			connected.Set(conn != nil)
		}
	}

	for buf := range g.toGraphite {
		queueItems.Value(len(g.toGraphite))
		var ok bool
		for !ok {
			assureConn()
			conn.SetWriteDeadline(time.Now().Add(g.timeout))
			pre := time.Now()
			_, err = conn.Write(buf)
			if err == nil {
				ok = true
				flushDuration.Value(time.Since(pre))
			} else {
				log.Warnf("stats: failed to write to graphite: %s (took %s). will retry...", err, time.Since(pre))
				conn.Close()
				wg.Wait()
				conn = nil
			}
		}
	}
}

// the carbon protocol is write-only, so any read result means the conn is done.
// without this we could keep writing into a conn the peer already reset.
func (g *Graphite) checkEOF(conn net.Conn, wg *sync.WaitGroup) {
	defer wg.Done()
	b := make([]byte, 1024)
	for {
		num, err := conn.Read(b)
		if err == io.EOF {
			log.Info("stats: graphite closed conn. closing conn")
			conn.Close()
			return
		}
		if num != 0 {
			log.Warnf("stats: read unexpected data from graphite: %s", b[:num])
			continue
		}
		if err != nil {
			log.Warnf("stats: graphite conn error: %s. closing conn", err)
			conn.Close()
			return
		}
	}
}

package bigtable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/bigtable"
	"github.com/grafana/hitcounter/series"
	"github.com/grafana/hitcounter/stats"
	"github.com/grafana/hitcounter/store"
	"github.com/grafana/hitcounter/tracing"
	"github.com/grafana/hitcounter/util"
	opentracing "github.com/opentracing/opentracing-go"
	tags "github.com/opentracing/opentracing-go/ext"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const backend = "bigtable"

var (
	// metric store.bigtable.get.exec is the duration of reading the latest sample from bigtable
	btblGetExecDuration = stats.NewLatencyHistogram15s32("store.bigtable.get.exec")
	// metric store.bigtable.put.exec is the duration of writing a sample to bigtable
	btblPutExecDuration = stats.NewLatencyHistogram15s32("store.bigtable.put.exec")
	// metric store.bigtable.get.error is the count of reads that failed
	btblReadError = stats.NewCounter32("store.bigtable.get.error")
	// metric store.bigtable.rows_per_range is how many rows range reads return
	btblRowsPerRange = stats.NewMeter32("store.bigtable.rows_per_range", true)

	// metric store.bigtable.sample_operations.save_ok is counter of successful saves
	sampleSaveOk = stats.NewCounter32("store.bigtable.sample_operations.save_ok")
	// metric store.bigtable.sample_operations.save_fail is counter of failed saves
	sampleSaveFail = stats.NewCounter32("store.bigtable.sample_operations.save_fail")
)

// latestOnly keeps just the newest cell of our column
var latestOnly = bigtable.RowFilter(bigtable.ChainFilters(
	bigtable.FamilyFilter(family),
	bigtable.ColumnFilter(column),
	bigtable.LatestNFilter(1),
))

type Store struct {
	client      *bigtable.Client
	tbl         *bigtable.Table
	readLimiter util.Limiter
	nanos       nanoSource
	tracer      opentracing.Tracer
	cfg         *StoreConfig

	sync.RWMutex
	stopped bool
}

// ensureTable creates the table and our column family if they're missing
func ensureTable(ctx context.Context, cfg *StoreConfig, opts ...option.ClientOption) error {
	adminClient, err := bigtable.NewAdminClient(ctx, cfg.GcpProject, cfg.BigtableInstance, opts...)
	if err != nil {
		return fmt.Errorf("btStore: failed to create bigtable admin client. %w", err)
	}
	defer adminClient.Close()

	tables, err := adminClient.Tables(ctx)
	if err != nil {
		return fmt.Errorf("btStore: failed to list tables. %w", err)
	}
	found := false
	for _, t := range tables {
		if t == cfg.TableName {
			found = true
			break
		}
	}
	if !found {
		log.Infof("btStore: table %s does not exist. Creating it.", cfg.TableName)
		err := adminClient.CreateTableFromConf(ctx, &bigtable.TableConf{
			TableID: cfg.TableName,
			Families: map[string]bigtable.GCPolicy{
				family: bigtable.MaxVersionsPolicy(1),
			},
		})
		if err != nil {
			return fmt.Errorf("btStore: failed to create %s table. %w", cfg.TableName, err)
		}
		return nil
	}

	log.Infof("btStore: table %s exists.", cfg.TableName)
	info, err := adminClient.TableInfo(ctx, cfg.TableName)
	if err != nil {
		return fmt.Errorf("btStore: failed to get tableInfo of %s. %w", cfg.TableName, err)
	}
	for _, f := range info.Families {
		if f == family {
			return nil
		}
	}
	log.Infof("btStore: column family %s/%s does not exist. creating it", cfg.TableName, family)
	if err := adminClient.CreateColumnFamily(ctx, cfg.TableName, family); err != nil {
		return fmt.Errorf("btStore: failed to create cf %s/%s. %w", cfg.TableName, family, err)
	}
	if err := adminClient.SetGCPolicy(ctx, cfg.TableName, family, bigtable.MaxVersionsPolicy(1)); err != nil {
		return fmt.Errorf("btStore: failed to set GCPolicy of %s/%s. %w", cfg.TableName, family, err)
	}
	return nil
}

func NewStore(cfg *StoreConfig) (*Store, error) {
	return NewStoreWithOptions(cfg, nil, nil)
}

// NewStoreWithOptions is NewStore with client options for the admin client (only used if
// the table may need to be created) and for the data client.
// the clients close their connections, so they must not share one.
func NewStoreWithOptions(cfg *StoreConfig, adminOpts, dataOpts []option.ClientOption) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx := context.Background()
	if cfg.CreateCF {
		if err := ensureTable(ctx, cfg, adminOpts...); err != nil {
			return nil, err
		}
	}

	client, err := bigtable.NewClient(ctx, cfg.GcpProject, cfg.BigtableInstance, dataOpts...)
	if err != nil {
		return nil, fmt.Errorf("btStore: failed to create bigtable client. %w", err)
	}

	return &Store{
		client:      client,
		tbl:         client.Open(cfg.TableName),
		readLimiter: util.NewLimiter(cfg.ReadConcurrency),
		tracer:      opentracing.NoopTracer{},
		cfg:         cfg,
	}, nil
}

func (s *Store) SetTracer(t opentracing.Tracer) {
	s.tracer = t
}

func (s *Store) Stop() {
	s.Lock()
	defer s.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if err := s.client.Close(); err != nil {
		log.Errorf("btStore: error closing bigtable client. %s", err)
	}
}

func (s *Store) isStopped() bool {
	s.RLock()
	defer s.RUnlock()
	return s.stopped
}

func newSpan(ctx context.Context, tracer opentracing.Tracer, name string, id series.ID) (context.Context, opentracing.Span) {
	ctx, span := tracing.NewSpan(ctx, tracer, name)
	tags.SpanKindRPCClient.Set(span)
	tags.PeerService.Set(span, "bigtable")
	tracing.TagSeries(span, id)
	return ctx, span
}

// rowToSample decodes a row read with the latestOnly filter
func rowToSample(row bigtable.Row) (series.Sample, error) {
	id, ts, err := parseRowKey(row.Key())
	if err != nil {
		return series.Sample{}, err
	}
	items := row[family]
	if len(items) == 0 {
		return series.Sample{}, fmt.Errorf("row %q has no %s cells", row.Key(), family)
	}
	count, err := decodeCount(items[0].Value)
	if err != nil {
		return series.Sample{}, fmt.Errorf("row %q: %w", row.Key(), err)
	}
	return series.Sample{Series: id, Ts: ts, Count: count}, nil
}

func (s *Store) GetLatest(ctx context.Context, id series.ID) (series.Sample, bool, error) {
	ctx, span := newSpan(ctx, s.tracer, "BigtableStore.GetLatest", id)
	defer span.Finish()

	if s.isStopped() {
		return series.Sample{}, false, store.NewError(backend, "GetLatest", store.ErrStopped)
	}
	if err := s.readLimiter.Acquire(ctx); err != nil {
		return series.Sample{}, false, store.NewError(backend, "GetLatest", err)
	}
	defer s.readLimiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var latest series.Sample
	var found bool
	var decodeErr error
	pre := time.Now()
	err := s.tbl.ReadRows(ctx, bigtable.PrefixRange(seriesPrefix(id)), func(row bigtable.Row) bool {
		latest, decodeErr = rowToSample(row)
		found = decodeErr == nil
		return false
	}, bigtable.LimitRows(1), latestOnly)
	btblGetExecDuration.Value(time.Since(pre))
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		btblReadError.Inc()
		tracing.Error(span, err)
		return series.Sample{}, false, store.NewError(backend, "GetLatest", err)
	}
	return latest, found, nil
}

func (s *Store) Append(ctx context.Context, sample series.Sample) error {
	ctx, span := newSpan(ctx, s.tracer, "BigtableStore.Append", sample.Series)
	defer span.Finish()

	if s.isStopped() {
		return store.NewError(backend, "Append", store.ErrStopped)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	mut := bigtable.NewMutation()
	mut.Set(family, column, bigtable.Timestamp(int64(sample.Ts)*1e6), encodeCount(sample.Count))
	key := formatRowKey(sample.Series, sample.Ts, s.nanos.next())

	pre := time.Now()
	err := s.tbl.Apply(ctx, key, mut)
	btblPutExecDuration.Value(time.Since(pre))
	if err != nil {
		sampleSaveFail.Inc()
		tracing.Error(span, err)
		return store.NewError(backend, "Append", err)
	}
	sampleSaveOk.Inc()
	log.Debugf("btStore: saved %s as %s", sample, key)
	return nil
}

// QueryRange reads rows newest first, as they are laid out.
// Descending ranges are streamed while the caller iterates. Bigtable can't scan
// in reverse, so ascending ranges are read fully and then reversed.
func (s *Store) QueryRange(ctx context.Context, id series.ID, from uint32, order series.Order) (store.Iter, error) {
	ctx, span := newSpan(ctx, s.tracer, "BigtableStore.QueryRange", id)
	tracing.TagRange(span, from, order)

	if s.isStopped() {
		span.Finish()
		return nil, store.NewError(backend, "QueryRange", store.ErrStopped)
	}
	if err := s.readLimiter.Acquire(ctx); err != nil {
		span.Finish()
		return nil, store.NewError(backend, "QueryRange", err)
	}
	rr := bigtable.NewRange(seriesPrefix(id), rangeEnd(id, from))

	if order == series.Ascending {
		defer span.Finish()
		defer s.readLimiter.Release()
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()

		samples := make([]series.Sample, 0)
		var decodeErr error
		err := s.tbl.ReadRows(ctx, rr, func(row bigtable.Row) bool {
			var sample series.Sample
			sample, decodeErr = rowToSample(row)
			if decodeErr != nil {
				return false
			}
			samples = append(samples, sample)
			return true
		}, latestOnly)
		if err == nil {
			err = decodeErr
		}
		btblRowsPerRange.Value(len(samples))
		if err != nil {
			btblReadError.Inc()
			tracing.Error(span, err)
			return nil, store.NewError(backend, "QueryRange", err)
		}
		for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
			samples[i], samples[j] = samples[j], samples[i]
		}
		return store.NewSliceIter(samples), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	it := &streamIter{
		out:    make(chan series.Sample),
		done:   make(chan struct{}),
		cancel: cancel,
		span:   span,
	}
	go func() {
		defer close(it.done)
		defer s.readLimiter.Release()
		defer close(it.out)
		var decodeErr error
		err := s.tbl.ReadRows(ctx, rr, func(row bigtable.Row) bool {
			var sample series.Sample
			sample, decodeErr = rowToSample(row)
			if decodeErr != nil {
				return false
			}
			select {
			case it.out <- sample:
				return true
			case <-ctx.Done():
				return false
			}
		}, latestOnly)
		if err == nil {
			err = decodeErr
		}
		it.err = err
	}()
	return it, nil
}

// streamIter receives the rows of a ReadRows call running in its own goroutine
type streamIter struct {
	out    chan series.Sample
	done   chan struct{}
	cancel context.CancelFunc
	span   opentracing.Span

	cur       series.Sample
	rows      int
	err       error // written by the reading goroutine before done is closed
	exhausted bool
	closed    bool
}

func (i *streamIter) Next() bool {
	if i.closed {
		return false
	}
	sample, ok := <-i.out
	if !ok {
		i.exhausted = true
		return false
	}
	i.cur = sample
	i.rows++
	return true
}

func (i *streamIter) At() series.Sample {
	return i.cur
}

// Close stops the read if it is still going, and returns the error it ended with, if any.
// A read cut short by Close itself is not an error.
func (i *streamIter) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	defer i.span.Finish()

	// distinguish a read that ended on its own from one we are about to cancel
	finished := i.exhausted
	select {
	case <-i.done:
		finished = true
	default:
	}
	i.cancel()
	for range i.out {
	}
	<-i.done

	btblRowsPerRange.Value(i.rows)
	if i.err == nil || (!finished && errors.Is(i.err, context.Canceled)) {
		return nil
	}
	btblReadError.Inc()
	tracing.Error(i.span, i.err)
	return store.NewError(backend, "QueryRange", i.err)
}

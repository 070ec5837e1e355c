package cassandra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/grafana/hitcounter/cassandra"
	"github.com/grafana/hitcounter/series"
	"github.com/grafana/hitcounter/stats"
	"github.com/grafana/hitcounter/store"
	"github.com/grafana/hitcounter/tracing"
	"github.com/grafana/hitcounter/util"
	hostpool "github.com/hailocab/go-hostpool"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
)

const backend = "cassandra"

// rows fetched per round trip while iterating a range
const pageSize = 500

var (
	// metric store.cassandra.get.exec is the duration of reading the latest sample from cassandra
	cassGetExecDuration = stats.NewLatencyHistogram15s32("store.cassandra.get.exec")
	// metric store.cassandra.put.exec is the duration of writing a sample to cassandra
	cassPutExecDuration = stats.NewLatencyHistogram15s32("store.cassandra.put.exec")
	// metric store.cassandra.range.wait is how long range reads wait for a free read slot
	cassRangeWaitDuration = stats.NewLatencyHistogram15s32("store.cassandra.range.wait")
	// metric store.cassandra.rows_per_range is how many rows range reads return
	cassRowsPerRange = stats.NewMeter32("store.cassandra.rows_per_range", true)
	// metric store.cassandra.reads_in_flight is how many read slots are taken
	cassReadsInFlight = stats.NewRange32("store.cassandra.reads_in_flight")

	// metric store.cassandra.sample_operations.save_ok is counter of successful saves
	sampleSaveOk = stats.NewCounter32("store.cassandra.sample_operations.save_ok")
	// metric store.cassandra.sample_operations.save_fail is counter of failed saves
	sampleSaveFail = stats.NewCounter32("store.cassandra.sample_operations.save_fail")

	errmetrics = cassandra.NewErrMetrics("store.cassandra")
)

type CassandraStore struct {
	Session     *cassandra.Session
	cluster     *gocql.ClusterConfig
	table       Table
	readLimiter util.Limiter
	tracer      opentracing.Tracer

	sync.RWMutex
	stopped bool
}

func hostSelectionPolicy(name string) (gocql.HostSelectionPolicy, error) {
	epsilonGreedy := func() gocql.HostSelectionPolicy {
		return gocql.HostPoolHostPolicy(
			hostpool.NewEpsilonGreedy(nil, 0, &hostpool.LinearEpsilonValueCalculator{}),
		)
	}
	switch name {
	case "roundrobin":
		return gocql.RoundRobinHostPolicy(), nil
	case "hostpool-simple":
		return gocql.HostPoolHostPolicy(hostpool.New(nil)), nil
	case "hostpool-epsilon-greedy":
		return epsilonGreedy(), nil
	case "tokenaware,roundrobin":
		return gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy()), nil
	case "tokenaware,hostpool-simple":
		return gocql.TokenAwareHostPolicy(gocql.HostPoolHostPolicy(hostpool.New(nil))), nil
	case "tokenaware,hostpool-epsilon-greedy":
		return gocql.TokenAwareHostPolicy(epsilonGreedy()), nil
	}
	return nil, fmt.Errorf("unknown HostSelectionPolicy %q", name)
}

// NewCassandraStore connects to cassandra and makes sure the keyspace and table exist
func NewCassandraStore(config *StoreConfig) (*CassandraStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	stats.NewGauge32("store.cassandra.read_concurrency").Set(config.ReadConcurrency)

	cluster := gocql.NewCluster(strings.Split(config.Addrs, ",")...)
	if config.SSL {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 config.CaPath,
			EnableHostVerification: config.HostVerification,
		}
	}
	if config.Auth {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	cluster.Timeout = config.Timeout
	cluster.ConnectTimeout = config.Timeout
	cluster.Consistency = gocql.ParseConsistency(config.Consistency)
	cluster.NumConns = config.ReadConcurrency
	cluster.ProtoVersion = config.CqlProtocolVersion
	cluster.DisableInitialHostLookup = config.DisableInitialHostLookup

	schemaKeyspace, err := util.ReadEntry(config.SchemaFile, "schema_keyspace")
	if err != nil {
		return nil, err
	}
	schemaTable, err := util.ReadEntry(config.SchemaFile, "schema_table")
	if err != nil {
		return nil, err
	}

	tmpSession, err := cluster.CreateSession()
	if err != nil {
		log.Errorf("cassandra-store: failed to create cassandra session. %s", err.Error())
		return nil, err
	}
	if config.CreateKeyspace {
		log.Infof("cassandra-store: ensuring that keyspace %s exists.", config.Keyspace)
		err = tmpSession.Query(fmt.Sprintf(schemaKeyspace, config.Keyspace)).Exec()
		if err != nil {
			tmpSession.Close()
			return nil, err
		}
	}
	schema := fmt.Sprintf(schemaTable, config.Keyspace, config.Table)
	err = cassandra.EnsureTableExists(tmpSession, config.CreateKeyspace, config.Keyspace, schema, config.Table, 5, 5*time.Second)
	tmpSession.Close()
	if err != nil {
		return nil, err
	}

	cluster.Keyspace = config.Keyspace
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: config.Retries}
	cluster.PoolConfig.HostSelectionPolicy, err = hostSelectionPolicy(config.HostSelectionPolicy)
	if err != nil {
		return nil, err
	}

	cs, err := cassandra.NewSession(cluster, config.ConnectionCheckTimeout, config.ConnectionCheckInterval, "cassandra-store")
	if err != nil {
		return nil, err
	}
	log.Debugf("cassandra-store: created session with config %+v", config)

	return &CassandraStore{
		Session:     cs,
		cluster:     cluster,
		table:       NewTable(config.Table),
		readLimiter: util.NewLimiter(config.ReadConcurrency),
		tracer:      opentracing.NoopTracer{},
	}, nil
}

func (c *CassandraStore) SetTracer(t opentracing.Tracer) {
	c.tracer = t
}

func (c *CassandraStore) Stop() {
	c.Lock()
	if c.stopped {
		c.Unlock()
		return
	}
	c.stopped = true
	c.Unlock()
	c.Session.Stop()
}

func (c *CassandraStore) isStopped() bool {
	c.RLock()
	defer c.RUnlock()
	return c.stopped
}

func (c *CassandraStore) acquireRead(ctx context.Context) error {
	pre := time.Now()
	err := c.readLimiter.Acquire(ctx)
	cassRangeWaitDuration.Value(time.Since(pre))
	cassReadsInFlight.Value(c.readLimiter.InUse())
	return err
}

func (c *CassandraStore) GetLatest(ctx context.Context, id series.ID) (series.Sample, bool, error) {
	ctx, span := tracing.NewSpan(ctx, c.tracer, "CassandraStore.GetLatest")
	defer span.Finish()
	tracing.TagSeries(span, id)

	if c.isStopped() {
		return series.Sample{}, false, store.NewError(backend, "GetLatest", store.ErrStopped)
	}
	if err := c.acquireRead(ctx); err != nil {
		return series.Sample{}, false, store.NewError(backend, "GetLatest", err)
	}
	defer c.readLimiter.Release()

	var ts, count int64
	pre := time.Now()
	err := c.Session.CurrentSession().Query(c.table.QueryLatest, string(id)).WithContext(ctx).Scan(&ts, &count)
	cassGetExecDuration.Value(time.Since(pre))
	if errors.Is(err, gocql.ErrNotFound) {
		return series.Sample{}, false, nil
	}
	if err != nil {
		errmetrics.Inc(err)
		tracing.Error(span, err)
		return series.Sample{}, false, store.NewError(backend, "GetLatest", err)
	}
	return series.Sample{
		Series: id,
		Ts:     uint32(ts),
		Count:  uint64(count),
	}, true, nil
}

// Append writes the sample with a fresh timeuuid, so appends within the same second
// get distinct rows, ordered by when they were made.
func (c *CassandraStore) Append(ctx context.Context, sample series.Sample) error {
	ctx, span := tracing.NewSpan(ctx, c.tracer, "CassandraStore.Append")
	defer span.Finish()
	tracing.TagSeries(span, sample.Series)

	if c.isStopped() {
		return store.NewError(backend, "Append", store.ErrStopped)
	}
	pre := time.Now()
	err := c.Session.CurrentSession().Query(c.table.QueryWrite, string(sample.Series), int64(sample.Ts), gocql.TimeUUID(), int64(sample.Count)).WithContext(ctx).Exec()
	cassPutExecDuration.Value(time.Since(pre))
	if err != nil {
		sampleSaveFail.Inc()
		errmetrics.Inc(err)
		tracing.Error(span, err)
		return store.NewError(backend, "Append", err)
	}
	sampleSaveOk.Inc()
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("cassandra-store: saved %s", sample)
	}
	return nil
}

// QueryRange pages through the matching rows as the iterator advances.
// The iterator holds a read slot until it is closed.
func (c *CassandraStore) QueryRange(ctx context.Context, id series.ID, from uint32, order series.Order) (store.Iter, error) {
	ctx, span := tracing.NewSpan(ctx, c.tracer, "CassandraStore.QueryRange")
	tracing.TagSeries(span, id)
	tracing.TagRange(span, from, order)

	if c.isStopped() {
		span.Finish()
		return nil, store.NewError(backend, "QueryRange", store.ErrStopped)
	}
	if err := c.acquireRead(ctx); err != nil {
		span.Finish()
		return nil, store.NewError(backend, "QueryRange", err)
	}

	query := c.table.QueryRangeDesc
	if order == series.Ascending {
		query = c.table.QueryRangeAsc
	}
	it := c.Session.CurrentSession().Query(query, string(id), int64(from)).WithContext(ctx).PageSize(pageSize).Iter()
	return &iter{
		id:      id,
		it:      it,
		span:    span,
		release: c.readLimiter.Release,
	}, nil
}

type iter struct {
	id      series.ID
	it      *gocql.Iter
	span    opentracing.Span
	release func()

	cur    series.Sample
	rows   int
	closed bool
}

func (i *iter) Next() bool {
	if i.closed {
		return false
	}
	var ts, count int64
	if !i.it.Scan(&ts, &count) {
		return false
	}
	i.cur = series.Sample{
		Series: i.id,
		Ts:     uint32(ts),
		Count:  uint64(count),
	}
	i.rows++
	return true
}

func (i *iter) At() series.Sample {
	return i.cur
}

func (i *iter) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	defer i.span.Finish()
	defer i.release()

	cassRowsPerRange.Value(i.rows)
	if err := i.it.Close(); err != nil {
		errmetrics.Inc(err)
		tracing.Error(i.span, err)
		return store.NewError(backend, "QueryRange", err)
	}
	return nil
}

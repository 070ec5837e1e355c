package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grafana/hitcounter/series"
	"github.com/grafana/hitcounter/store"
	. "github.com/smartystreets/goconvey/convey"
)

func sample(id series.ID, ts uint32, count uint64) series.Sample {
	return series.Sample{Series: id, Ts: ts, Count: count}
}

func mustAppend(t *testing.T, s *Store, samples ...series.Sample) {
	for _, smp := range samples {
		if err := s.Append(context.Background(), smp); err != nil {
			t.Fatalf("Append(%s) failed: %s", smp, err)
		}
	}
}

func query(t *testing.T, s *Store, id series.ID, from uint32, order series.Order) []series.Sample {
	it, err := s.QueryRange(context.Background(), id, from, order)
	if err != nil {
		t.Fatalf("QueryRange failed: %s", err)
	}
	out, err := store.Collect(it)
	if err != nil {
		t.Fatalf("iteration failed: %s", err)
	}
	return out
}

func TestGetLatest(t *testing.T) {
	ctx := context.Background()
	Convey("Given an empty memory store", t, func() {
		s := New()

		Convey("GetLatest reports absence without an error", func() {
			_, found, err := s.GetLatest(ctx, series.Status)
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
		})

		Convey("When samples are appended to both series", func() {
			mustAppend(t, s,
				sample(series.Status, 100, 1),
				sample(series.SecureStatus, 150, 7),
				sample(series.Status, 200, 2),
			)

			Convey("GetLatest returns the sample with the greatest timestamp of that series", func() {
				latest, found, err := s.GetLatest(ctx, series.Status)
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(latest, ShouldResemble, sample(series.Status, 200, 2))

				latest, found, err = s.GetLatest(ctx, series.SecureStatus)
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(latest, ShouldResemble, sample(series.SecureStatus, 150, 7))
			})

			Convey("GetLatest is repeatable without writes in between", func() {
				first, _, _ := s.GetLatest(ctx, series.Status)
				second, _, _ := s.GetLatest(ctx, series.Status)
				So(second, ShouldResemble, first)
			})
		})

		Convey("When samples share a timestamp, the last appended one is the latest", func() {
			mustAppend(t, s,
				sample(series.Status, 100, 1),
				sample(series.Status, 100, 2),
			)
			latest, _, err := s.GetLatest(ctx, series.Status)
			So(err, ShouldBeNil)
			So(latest.Count, ShouldEqual, 2)
		})
	})
}

func TestAppendIsNotIdempotent(t *testing.T) {
	s := New()
	same := sample(series.Status, 100, 1)
	mustAppend(t, s, same, same)
	got := query(t, s, series.Status, 0, series.Ascending)
	if len(got) != 2 {
		t.Fatalf("expected two entries for two identical appends, got %d", len(got))
	}
}

func TestQueryRange(t *testing.T) {
	s := New()
	mustAppend(t, s,
		sample(series.Status, 100, 1),
		sample(series.Status, 110, 2),
		sample(series.Status, 110, 3),
		sample(series.SecureStatus, 115, 1),
		sample(series.Status, 120, 4),
	)

	tests := []struct {
		name  string
		id    series.ID
		from  uint32
		order series.Order
		exp   []series.Sample
	}{
		{
			name:  "all ascending",
			id:    series.Status,
			from:  0,
			order: series.Ascending,
			exp: []series.Sample{
				sample(series.Status, 100, 1),
				sample(series.Status, 110, 2),
				sample(series.Status, 110, 3),
				sample(series.Status, 120, 4),
			},
		},
		{
			name:  "all descending",
			id:    series.Status,
			from:  0,
			order: series.Descending,
			exp: []series.Sample{
				sample(series.Status, 120, 4),
				sample(series.Status, 110, 3),
				sample(series.Status, 110, 2),
				sample(series.Status, 100, 1),
			},
		},
		{
			name:  "from is inclusive",
			id:    series.Status,
			from:  110,
			order: series.Ascending,
			exp: []series.Sample{
				sample(series.Status, 110, 2),
				sample(series.Status, 110, 3),
				sample(series.Status, 120, 4),
			},
		},
		{
			name:  "from excludes older, descending",
			id:    series.Status,
			from:  111,
			order: series.Descending,
			exp: []series.Sample{
				sample(series.Status, 120, 4),
			},
		},
		{
			name:  "other series only",
			id:    series.SecureStatus,
			from:  0,
			order: series.Ascending,
			exp: []series.Sample{
				sample(series.SecureStatus, 115, 1),
			},
		},
		{
			name:  "nothing newer",
			id:    series.Status,
			from:  121,
			order: series.Ascending,
			exp:   []series.Sample{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query(t, s, tt.id, tt.from, tt.order)
			if diff := cmp.Diff(tt.exp, got); diff != "" {
				t.Errorf("QueryRange() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueryRangeSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()
	mustAppend(t, s, sample(series.Status, 100, 1), sample(series.Status, 101, 2))

	it, err := s.QueryRange(ctx, series.Status, 0, series.Ascending)
	if err != nil {
		t.Fatalf("QueryRange failed: %s", err)
	}
	if !it.Next() {
		t.Fatalf("expected a first sample")
	}
	mustAppend(t, s, sample(series.Status, 102, 3))

	var counts []uint64
	counts = append(counts, it.At().Count)
	for it.Next() {
		counts = append(counts, it.At().Count)
	}
	if err := it.Close(); err != nil {
		t.Fatalf("Close returned %s", err)
	}
	if diff := cmp.Diff([]uint64{1, 2}, counts); diff != "" {
		t.Errorf("iterator saw writes made after it was created (-want +got):\n%s", diff)
	}
	if it.Next() {
		t.Errorf("a closed iterator must not yield more samples")
	}
}

func TestCanceledContext(t *testing.T) {
	s := New()
	mustAppend(t, s, sample(series.Status, 100, 1), sample(series.Status, 101, 2))

	ctx, cancel := context.WithCancel(context.Background())
	it, err := s.QueryRange(ctx, series.Status, 0, series.Ascending)
	if err != nil {
		t.Fatalf("QueryRange failed: %s", err)
	}
	if !it.Next() {
		t.Fatalf("expected a first sample")
	}
	cancel()
	if it.Next() {
		t.Fatalf("expected iteration to stop after cancel")
	}
	err = it.Close()
	if !store.IsError(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a store error wrapping context.Canceled, got %v", err)
	}

	_, _, err = s.GetLatest(ctx, series.Status)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected GetLatest to fail with a canceled context, got %v", err)
	}
}

func TestStopped(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Stop()

	_, _, err := s.GetLatest(ctx, series.Status)
	if !errors.Is(err, store.ErrStopped) {
		t.Fatalf("GetLatest: expected ErrStopped, got %v", err)
	}
	if err := s.Append(ctx, sample(series.Status, 1, 1)); !errors.Is(err, store.ErrStopped) {
		t.Fatalf("Append: expected ErrStopped, got %v", err)
	}
	if _, err := s.QueryRange(ctx, series.Status, 0, series.Ascending); !errors.Is(err, store.ErrStopped) {
		t.Fatalf("QueryRange: expected ErrStopped, got %v", err)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append(context.Background(), sample(series.Status, uint32(j), uint64(i)))
			}
		}(i)
	}
	wg.Wait()
	got := query(t, s, series.Status, 0, series.Ascending)
	if len(got) != 400 {
		t.Fatalf("expected 400 samples, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Ts < got[i-1].Ts {
			t.Fatalf("samples out of order at %d: %s after %s", i, got[i], got[i-1])
		}
	}
}

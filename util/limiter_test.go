package util

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLimiter(t *testing.T) {
	ctx := context.Background()
	Convey("when limiter below limits", t, func() {
		limiter := NewLimiter(1)
		So(limiter.Acquire(ctx), ShouldBeNil)
		So(limiter.InUse(), ShouldEqual, 1)
		Convey("when limiter reaches limit", func() {
			ch := make(chan error)
			ctx, cancel := context.WithCancel(ctx)
			go func(ctx context.Context) {
				ch <- limiter.Acquire(ctx)
			}(ctx)
			blocked := true
			select {
			case <-time.After(10 * time.Millisecond):
			case <-ch:
				blocked = false
			}
			So(blocked, ShouldBeTrue)
			Convey("when worker released", func() {
				limiter.Release()
				So(<-ch, ShouldBeNil)
				cancel()
			})
			Convey("when context canceled", func() {
				cancel()
				So(<-ch, ShouldEqual, context.Canceled)
				So(limiter.InUse(), ShouldEqual, 1)
			})
		})
	})
	Convey("when context canceled before calling Acquire", t, func() {
		limiter := NewLimiter(1)
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		So(limiter.Acquire(ctx), ShouldEqual, context.Canceled)
		So(limiter.InUse(), ShouldEqual, 0)
	})
	Convey("a non-positive limit still admits one worker", t, func() {
		limiter := NewLimiter(0)
		So(limiter.Acquire(ctx), ShouldBeNil)
		limiter.Release()
	})
}

package cassandra

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHostSelectionPolicy(t *testing.T) {
	Convey("every documented host selection policy can be constructed", t, func() {
		for _, name := range hostSelectionPolicies {
			p, err := hostSelectionPolicy(name)
			So(err, ShouldBeNil)
			So(p, ShouldNotBeNil)
		}
	})
	Convey("unknown policies are rejected", t, func() {
		_, err := hostSelectionPolicy("tokenaware")
		So(err, ShouldNotBeNil)
	})
}

func TestIterCloseIsIdempotent(t *testing.T) {
	released := 0
	i := &iter{
		closed:  true,
		release: func() { released++ },
	}
	if i.Next() {
		t.Fatalf("closed iterator should not advance")
	}
	if err := i.Close(); err != nil {
		t.Fatalf("closing twice should be a noop, got %s", err)
	}
	if released != 0 {
		t.Fatalf("read slot released %d times by a closed iterator", released)
	}
}

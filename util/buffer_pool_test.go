package util

import "testing"

func TestBufferPoolReturnsEmptyBuffers(t *testing.T) {
	p := NewBufferPool()
	buf := p.Get()
	if len(buf) != 0 {
		t.Fatalf("expected empty buffer, got len %d", len(buf))
	}
	buf = append(buf, "some response body"...)
	p.Put(buf)
	again := p.Get()
	if len(again) != 0 {
		t.Fatalf("expected empty buffer after Put, got len %d", len(again))
	}
}

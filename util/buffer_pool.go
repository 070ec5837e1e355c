package util

import (
	"sync"
)

// BufferPool hands out byte slices with len 0 for responses to be serialized into
type BufferPool struct {
	pool sync.Pool
}

func NewBufferPool() *BufferPool {
	return &BufferPool{pool: sync.Pool{
		New: func() interface{} { return make([]byte, 0, 512) },
	}}
}

func (b *BufferPool) Get() []byte {
	return b.pool.Get().([]byte)
}

// Put returns buf to the pool. buf must not be used afterwards
func (b *BufferPool) Put(buf []byte) {
	b.pool.Put(buf[:0])
}

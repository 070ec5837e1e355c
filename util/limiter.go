package util

import "context"

// Limiter bounds how many operations run concurrently.
// Call Acquire before starting work and Release when it is done.
type Limiter chan struct{}

func NewLimiter(l int) Limiter {
	if l < 1 {
		l = 1
	}
	return make(chan struct{}, l)
}

// Acquire blocks until a slot is free or ctx is done.
// In the latter case it returns the context's error and no slot is held.
func (l Limiter) Acquire(ctx context.Context) error {
	// a done context wins even if a slot happens to be free
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case l <- struct{}{}:
	}
	return nil
}

func (l Limiter) Release() { <-l }

// InUse returns how many slots are currently held
func (l Limiter) InUse() int {
	return len(l)
}

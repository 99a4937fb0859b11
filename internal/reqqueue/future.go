package reqqueue

import "context"

// Future is the shared result of a queued request.
type Future[V any] struct {
	done  chan struct{}
	value V
	err   error
}

func newFuture[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

func resolved[V any](value V) *Future[V] {
	f := newFuture[V]()
	f.resolve(value, nil)
	return f
}

func rejected[V any](err error) *Future[V] {
	var zero V
	f := newFuture[V]()
	f.resolve(zero, err)
	return f
}

// resolve must be called exactly once.
func (f *Future[V]) resolve(value V, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

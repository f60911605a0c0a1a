package potok

import (
	"context"
	"sync"
)

// Future is a single-assignment result cell: settled at most once, read any
// number of times.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	res  Result[T]
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Settled returns a Future that already holds r.
func Settled[T any](r Result[T]) *Future[T] {
	f := NewFuture[T]()
	f.Settle(r)
	return f
}

// Go runs fn in its own goroutine and settles the returned Future with its
// outcome. A panic in fn rejects the Future.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				f.Settle(Reject[T](panicError(p)))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			f.Settle(Reject[T](err))
			return
		}
		f.Settle(Fulfill(v))
	}()
	return f
}

// Settle stores r. It reports false when the Future was already settled, in
// which case r is discarded.
func (f *Future[T]) Settle(r Result[T]) bool {
	settled := false
	f.once.Do(func() {
		f.res = r
		settled = true
		close(f.done)
	})
	return settled
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (Result[T], error) {
	select {
	case <-f.done:
		return f.res, nil
	default:
	}
	select {
	case <-f.done:
		return f.res, nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}

// Peek returns the outcome without blocking.
func (f *Future[T]) Peek() (Result[T], bool) {
	select {
	case <-f.done:
		return f.res, true
	default:
		return Result[T]{}, false
	}
}

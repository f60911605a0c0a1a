package potok

import (
	"context"
	"testing"
	"time"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func later[T any](d time.Duration, v T) *Future[T] {
	return Go(context.Background(), func(context.Context) (T, error) {
		time.Sleep(d)
		return v, nil
	})
}

func laterReject[T any](d time.Duration, err error) *Future[T] {
	f := NewFuture[T]()
	go func() {
		time.Sleep(d)
		f.Settle(Reject[T](err))
	}()
	return f
}

func laterNull[T any](d time.Duration) *Future[T] {
	f := NewFuture[T]()
	go func() {
		time.Sleep(d)
		f.Settle(Null[T]())
	}()
	return f
}

// recvEnd is a minimal Receiver that records what it got.
type recvEnd[T any] struct {
	enterErr error
	entered  chan Awaitable[T]
	ended    chan struct{}
}

func newRecvEnd[T any](enterErr error) *recvEnd[T] {
	return &recvEnd[T]{
		enterErr: enterErr,
		entered:  make(chan Awaitable[T], 16),
		ended:    make(chan struct{}, 4),
	}
}

func (r *recvEnd[T]) Enter(unit Awaitable[T]) error {
	r.entered <- unit
	return r.enterErr
}

func (r *recvEnd[T]) End() {
	r.ended <- struct{}{}
}

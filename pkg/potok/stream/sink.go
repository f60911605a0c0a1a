package stream

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/OJezu/potok/pkg/potok"
)

const defaultBuffer = 64

// SinkHandlers are the callbacks of a Sink. All of them are optional and
// are never called concurrently.
type SinkHandlers[T any] struct {
	OnValue func(ctx context.Context, v T) error
	OnError func(ctx context.Context, err error)
	OnEnd   func(ctx context.Context)
}

// Sink writes the units it receives, one at a time, in arrival order.
type Sink[T any] struct {
	ctx      context.Context
	handlers SinkHandlers[T]
	queue    chan potok.Awaitable[T]
	done     *potok.Future[int]

	mu     sync.Mutex
	closed bool
}

type SinkOption func(*sinkConfig)

type sinkConfig struct {
	buffer int
}

// WithBuffer sets how many units Enter queues before it blocks.
func WithBuffer(n int) SinkOption {
	return func(c *sinkConfig) {
		if n >= 0 {
			c.buffer = n
		}
	}
}

func NewSink[T any](ctx context.Context, handlers SinkHandlers[T], opts ...SinkOption) *Sink[T] {
	c := sinkConfig{buffer: defaultBuffer}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Sink[T]{
		ctx:      context.WithoutCancel(ctx),
		handlers: handlers,
		queue:    make(chan potok.Awaitable[T], c.buffer),
		done:     potok.NewFuture[int](),
	}
	go s.run()
	return s
}

// NewLineSink writes every value on its own line. A failed write is passed
// to onError, as are rejections.
func NewLineSink[T any](ctx context.Context, w io.Writer, onError func(ctx context.Context, err error), opts ...SinkOption) *Sink[T] {
	return NewSink(ctx, SinkHandlers[T]{
		OnValue: func(_ context.Context, v T) error {
			_, err := fmt.Fprintln(w, v)
			return err
		},
		OnError: onError,
	}, opts...)
}

// NewChanSink delivers values and rejections on the returned channel, which
// is closed once the sink ended.
func NewChanSink[T any](ctx context.Context, buffer int) (*Sink[T], <-chan potok.Result[T]) {
	out := make(chan potok.Result[T], max(buffer, 0))
	s := NewSink(ctx, SinkHandlers[T]{
		OnValue: func(_ context.Context, v T) error {
			out <- potok.Fulfill(v)
			return nil
		},
		OnError: func(_ context.Context, err error) {
			out <- potok.Reject[T](err)
		},
		OnEnd: func(context.Context) {
			close(out)
		},
	})
	return s, out
}

// Enter queues a unit. It blocks while the buffer is full and fails with
// potok.ErrWriteAfterEnd once the sink was ended.
func (s *Sink[T]) Enter(unit potok.Awaitable[T]) error {
	if potok.IsNil(unit) {
		unit = potok.Null[T]()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return potok.ErrWriteAfterEnd
	}
	s.queue <- unit
	return nil
}

func (s *Sink[T]) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}

// Done settles with the number of values written once OnEnd returned.
func (s *Sink[T]) Done() *potok.Future[int] {
	return s.done
}

func (s *Sink[T]) Wait(ctx context.Context) (int, error) {
	r, err := s.done.Await(ctx)
	if err != nil {
		return 0, err
	}
	return r.Value(), r.Err()
}

func (s *Sink[T]) run() {
	written := 0
	for unit := range s.queue {
		r, err := unit.Await(s.ctx)
		if err != nil {
			r = potok.Reject[T](err)
		}

		switch {
		case r.IsRejected():
			s.fail(r.Err())
		case r.IsNull():
		default:
			if err := s.write(r.Value()); err != nil {
				s.fail(err)
				continue
			}
			written++
		}
	}

	if s.handlers.OnEnd != nil {
		s.handlers.OnEnd(s.ctx)
	}
	s.done.Settle(potok.Fulfill(written))
}

func (s *Sink[T]) write(v T) (err error) {
	if s.handlers.OnValue == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sink panic: %v", p)
		}
	}()
	return s.handlers.OnValue(s.ctx, v)
}

func (s *Sink[T]) fail(err error) {
	if err == nil {
		err = potok.ErrNullReason
	}
	if s.handlers.OnError != nil {
		s.handlers.OnError(s.ctx, err)
	}
}

var _ potok.Receiver[int] = (*Sink[int])(nil)

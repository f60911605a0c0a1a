package potok

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_PreservesArrivalOrder(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{
		EachFulfilled: func(_ context.Context, v int, _ *Node[int]) Result[int] {
			return Fulfill(v + 1)
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.Enter(later(60*time.Millisecond, 1)))
	require.NoError(t, n.Enter(later(30*time.Millisecond, 2)))
	require.NoError(t, n.Enter(later(0, 3)))
	n.End()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, values)
}

func TestNode_DropsNullsKeepsRejections(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[string]{})
	require.NoError(t, err)

	require.NoError(t, n.Enter(laterNull[string](10*time.Millisecond)))
	require.NoError(t, n.Enter(laterReject[string](5*time.Millisecond, nil)))
	require.NoError(t, n.EnterValue("a"))
	n.End()

	results, err := n.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].IsRejected())
	assert.Nil(t, results[0].Err())
	assert.Equal(t, "a", results[1].Value())
}

func TestNode_PassNullsKeepsNulls(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[string]{}, WithPassNulls())
	require.NoError(t, err)

	require.NoError(t, n.Enter(nil))
	require.NoError(t, n.EnterValue("a"))
	n.End()

	results, err := n.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].IsNull())
	assert.Equal(t, "a", results[1].Value())
}

func TestNode_HandlerNullIsDropped(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{
		EachFulfilled: func(_ context.Context, v int, _ *Node[int]) Result[int] {
			if v%2 == 0 {
				return Null[int]()
			}
			return Fulfill(v)
		},
	})
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		require.NoError(t, n.EnterValue(i))
	}
	n.End()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, values)
}

func TestNode_EnterAfterEnd(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{})
	require.NoError(t, err)
	n.End()

	err = n.EnterValue(1)
	require.ErrorIs(t, err, ErrWriteAfterEnd)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = n.Wait(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, n.Push(Fulfill(1)), ErrWriteAfterEnd)
}

func TestNode_EndIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	var calls atomic.Int32
	n, err := New(ctx, Handlers[int]{
		AfterAll: func(_ context.Context, results []Result[int], _ *Node[int]) Result[int] {
			calls.Add(1)
			return Null[int]()
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.EnterValue(1))
	n.End()
	n.End()
	n.LazyEnd()

	results, err := n.Wait(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StateEnded, n.State())
}

func TestNode_LazyEndAcceptsFollowUps(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{
		EachFulfilled: func(_ context.Context, v int, n *Node[int]) Result[int] {
			if v > 0 {
				time.Sleep(5 * time.Millisecond)
				if err := n.EnterValue(v - 1); err != nil {
					return Reject[int](err)
				}
			}
			return Fulfill(v)
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.EnterValue(3))
	n.LazyEnd()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1, 0}, values)
}

func TestNode_EndRefusesFollowUps(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	release := make(chan struct{})
	n, err := New(ctx, Handlers[int]{
		EachFulfilled: func(_ context.Context, v int, n *Node[int]) Result[int] {
			<-release
			if err := n.EnterValue(v + 1); err != nil {
				return Reject[int](err)
			}
			return Fulfill(v)
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.EnterValue(1))
	n.End()
	close(release)

	reasons, err := n.OnlyRejected(ctx)
	require.NoError(t, err)
	require.Len(t, reasons, 1)
	assert.ErrorIs(t, reasons[0], ErrWriteAfterEnd)
}

func TestNode_BeforeAllGatesHandlers(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	var ready atomic.Bool
	n, err := New(ctx, Handlers[int]{
		BeforeAll: func(context.Context, *Node[int]) error {
			time.Sleep(40 * time.Millisecond)
			ready.Store(true)
			return nil
		},
		EachFulfilled: func(_ context.Context, v int, _ *Node[int]) Result[int] {
			if !ready.Load() {
				return Reject[int](errors.New("handler ran before beforeAll"))
			}
			return Fulfill(v)
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.EnterValue(1))
	require.NoError(t, n.EnterValue(2))
	n.End()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, values)
}

func TestNode_BeforeAllFailureRejectsCompletion(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	boom := errors.New("boom")
	var handled, afterAll atomic.Bool
	n, err := New(ctx, Handlers[int]{
		BeforeAll: func(context.Context, *Node[int]) error {
			return boom
		},
		EachFulfilled: func(_ context.Context, v int, _ *Node[int]) Result[int] {
			handled.Store(true)
			return Fulfill(v)
		},
		AfterAll: func(context.Context, []Result[int], *Node[int]) Result[int] {
			afterAll.Store(true)
			return Null[int]()
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.EnterValue(1))
	n.End()

	_, err = n.Wait(ctx)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "beforeAll")
	assert.True(t, handled.Load())
	assert.False(t, afterAll.Load())
	assert.Equal(t, StateEnded, n.State())
}

func TestNode_AfterAllAndPushFinal(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	var seen []int
	n, err := New(ctx, Handlers[int]{
		AfterAll: func(_ context.Context, results []Result[int], n *Node[int]) Result[int] {
			seen = Values(results)
			if err := n.PushFinal(Fulfill(10)); err != nil {
				return Reject[int](err)
			}
			return Fulfill(len(results))
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.EnterValue(1))
	require.NoError(t, n.Enter(Null[int]()))
	require.NoError(t, n.EnterValue(2))
	n.End()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, []int{1, 2, 10, 2}, values)
}

func TestNode_PushFinalOutsideAfterAll(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{})
	require.NoError(t, err)

	err = n.PushFinal(Fulfill(1))
	require.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrWriteAfterEnd)

	n.End()
	_, err = n.Wait(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, n.PushFinal(Fulfill(1)), ErrConfiguration)
}

func TestNode_PushBypassesHandlers(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{
		EachFulfilled: func(_ context.Context, v int, _ *Node[int]) Result[int] {
			return Fulfill(v * 2)
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.EnterValue(1))
	require.NoError(t, n.Push(Fulfill(5)))
	require.NoError(t, n.Push(later(10*time.Millisecond, 7)))
	n.End()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 7}, values)
}

func TestNode_AllReplacesOutcomes(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	var got []Result[int]
	n, err := New(ctx, Handlers[int]{
		All: func(_ context.Context, units []Result[int]) Result[int] {
			got = units
			sum := 0
			for _, v := range Values(units) {
				sum += v
			}
			return Fulfill(sum)
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.Enter(later(20*time.Millisecond, 1)))
	require.NoError(t, n.Enter(laterReject[int](0, errors.New("nope"))))
	require.NoError(t, n.Enter(Null[int]()))
	require.NoError(t, n.EnterValue(2))
	n.End()

	results, err := n.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Value())

	require.Len(t, got, 4)
	assert.Equal(t, 1, got[0].Value())
	assert.True(t, got[1].IsRejected())
	assert.True(t, got[2].IsNull())
	assert.Equal(t, 2, got[3].Value())
}

func TestNode_HandlerPanicBecomesRejection(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{
		EachFulfilled: func(_ context.Context, v int, _ *Node[int]) Result[int] {
			if v == 2 {
				panic("two")
			}
			return Fulfill(v)
		},
	})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, n.EnterValue(i))
	}
	n.End()

	results, err := n.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[1].IsRejected())
	assert.Contains(t, results[1].Err().Error(), "two")
}

func TestNode_EachRejectedRecovers(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	var fulfilledCalls atomic.Int32
	n, err := New(ctx, Handlers[int]{
		EachFulfilled: func(_ context.Context, v int, _ *Node[int]) Result[int] {
			fulfilledCalls.Add(1)
			return Fulfill(v)
		},
		EachRejected: func(context.Context, error, *Node[int]) Result[int] {
			return Fulfill(-1)
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.Enter(Reject[int](errors.New("bad"))))
	require.NoError(t, n.Enter(Null[int]()))
	require.NoError(t, n.EnterValue(4))
	n.End()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 0, 4}, values)
	assert.Equal(t, int32(2), fulfilledCalls.Load())
}

func TestNode_EachFulfilledDecidesNullUnits(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	var calls atomic.Int32
	n, err := New(ctx, Handlers[string]{
		EachFulfilled: func(_ context.Context, v string, _ *Node[string]) Result[string] {
			calls.Add(1)
			if v == "" {
				return Fulfill("seen")
			}
			return Fulfill(v)
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.Enter(Null[string]()))
	require.NoError(t, n.Enter(laterNull[string](10*time.Millisecond)))
	require.NoError(t, n.EnterValue("x"))
	n.End()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"seen", "seen", "x"}, values)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNode_EachReceivesRawUnit(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{
		Each: func(ctx context.Context, unit Awaitable[int], _ *Node[int]) Result[int] {
			r, err := unit.Await(ctx)
			if err != nil {
				return Reject[int](err)
			}
			if r.IsRejected() {
				return Fulfill(0)
			}
			return Fulfill(r.Value() * 10)
		},
	})
	require.NoError(t, err)

	require.NoError(t, n.Enter(later(10*time.Millisecond, 1)))
	require.NoError(t, n.Enter(Reject[int](errors.New("x"))))
	n.End()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 0}, values)
}

func TestNode_AfterAllPanicRejectsCompletion(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{
		AfterAll: func(context.Context, []Result[int], *Node[int]) Result[int] {
			panic("late")
		},
	})
	require.NoError(t, err)
	n.End()

	_, err = n.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "afterAll")
	assert.Contains(t, err.Error(), "late")
}

func TestNode_DiscardResults(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	var handled atomic.Int32
	n, err := New(ctx, Handlers[int]{
		EachFulfilled: func(_ context.Context, v int, _ *Node[int]) Result[int] {
			handled.Add(1)
			return Fulfill(v)
		},
	}, WithDiscardResults())
	require.NoError(t, err)

	require.NoError(t, n.EnterValue(1))
	require.NoError(t, n.EnterValue(2))
	n.End()

	results, err := n.Wait(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Equal(t, int32(2), handled.Load())
}

func TestNode_WaitHonoursContext(t *testing.T) {
	t.Parallel()

	n, err := New(context.Background(), Handlers[int]{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = n.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateOpen, n.State())
}

func TestNode_CancelledContextDoesNotStopWork(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	n, err := New(parent, Handlers[int]{
		EachFulfilled: func(ctx context.Context, v int, _ *Node[int]) Result[int] {
			if ctx.Err() != nil {
				return Reject[int](ctx.Err())
			}
			return Fulfill(v)
		},
	})
	require.NoError(t, err)
	cancel()

	require.NoError(t, n.EnterValue(1))
	n.End()

	values, err := n.FailOnReject(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, values)
}

func TestNode_ConcurrentEnter(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	n, err := New(ctx, Handlers[int]{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			assert.NoError(t, n.EnterValue(v))
		}(i)
	}
	wg.Wait()
	n.End()

	values, err := n.FailOnReject(ctx)
	require.NoError(t, err)
	assert.Len(t, values, 50)
}

func TestNode_ObserverSeesLifecycle(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	var mu sync.Mutex
	counts := map[EventType]int{}
	var states []State
	obs := ObserverFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		counts[e.Type]++
		if e.Type == EventStateChanged {
			states = append(states, e.State)
		}
	})

	n, err := New(ctx, Handlers[int]{}, WithObserver(obs), WithName("observed"))
	require.NoError(t, err)
	assert.Equal(t, "observed", n.Name())

	require.NoError(t, n.EnterValue(1))
	require.NoError(t, n.Enter(Null[int]()))
	require.NoError(t, n.Push(Fulfill(2)))
	n.End()
	_, err = n.Wait(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, counts[EventEntered])
	assert.Equal(t, 1, counts[EventPushed])
	assert.Equal(t, 2, counts[EventSettled])
	assert.Equal(t, 1, counts[EventDropped])
	assert.Equal(t, 1, counts[EventEnded])
	assert.Equal(t, []State{StateClosing, StateDraining, StateFinalizing, StateEnded}, states)
}

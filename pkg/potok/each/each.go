package each

import (
	"context"
	"errors"

	"github.com/OJezu/potok/pkg/potok"
)

func Map[T any](onFulfilled func(ctx context.Context, v T) T) potok.EachFulfilledFunc[T] {
	return func(ctx context.Context, v T, _ *potok.Node[T]) potok.Result[T] {
		return potok.Fulfill(onFulfilled(ctx, v))
	}
}

// Try calls fn and turns its error into a rejection.
func Try[T any](fn func(ctx context.Context, v T) (T, error)) potok.EachFulfilledFunc[T] {
	return func(ctx context.Context, v T, _ *potok.Node[T]) potok.Result[T] {
		out, err := fn(ctx, v)
		if err != nil {
			return potok.Reject[T](err)
		}
		return potok.Fulfill(out)
	}
}

// FailOnError keeps the value unless check reports an error.
func FailOnError[T any](check func(ctx context.Context, v T) error) potok.EachFulfilledFunc[T] {
	return func(ctx context.Context, v T, _ *potok.Node[T]) potok.Result[T] {
		if err := check(ctx, v); err != nil {
			return potok.Reject[T](err)
		}
		return potok.Fulfill(v)
	}
}

func Validate[T any](validate func(ctx context.Context, v T) (valid bool, errMsg string)) potok.EachFulfilledFunc[T] {
	return func(ctx context.Context, v T, _ *potok.Node[T]) potok.Result[T] {
		if valid, errMsg := validate(ctx, v); !valid {
			return potok.Reject[T](errors.New(errMsg))
		}
		return potok.Fulfill(v)
	}
}

// Filter drops values for which keep is false by turning them into nulls.
func Filter[T any](keep func(ctx context.Context, v T) bool) potok.EachFulfilledFunc[T] {
	return func(ctx context.Context, v T, _ *potok.Node[T]) potok.Result[T] {
		if !keep(ctx, v) {
			return potok.Null[T]()
		}
		return potok.Fulfill(v)
	}
}

func Tee[T any](onFulfilled func(ctx context.Context, v T)) potok.EachFulfilledFunc[T] {
	return func(ctx context.Context, v T, _ *potok.Node[T]) potok.Result[T] {
		onFulfilled(ctx, v)
		return potok.Fulfill(v)
	}
}

// Steps runs the handlers in order, feeding each value to the next. It stops
// at the first rejection or null.
func Steps[T any](steps ...potok.EachFulfilledFunc[T]) potok.EachFulfilledFunc[T] {
	return func(ctx context.Context, v T, n *potok.Node[T]) potok.Result[T] {
		current := potok.Fulfill(v)
		for _, step := range steps {
			if step == nil {
				continue
			}
			current = step(ctx, current.Value(), n)
			if current.IsRejected() || current.IsNull() {
				return current
			}
		}
		return current
	}
}

// Recover turns a rejection into a fulfilled value.
func Recover[T any](onRejected func(ctx context.Context, err error) T) potok.EachRejectedFunc[T] {
	return func(ctx context.Context, err error, _ *potok.Node[T]) potok.Result[T] {
		return potok.Fulfill(onRejected(ctx, err))
	}
}

// Ignore drops every rejection. onRejected, if set, still sees the reason.
func Ignore[T any](onRejected func(ctx context.Context, err error)) potok.EachRejectedFunc[T] {
	return func(ctx context.Context, err error, _ *potok.Node[T]) potok.Result[T] {
		if onRejected != nil {
			onRejected(ctx, err)
		}
		return potok.Null[T]()
	}
}

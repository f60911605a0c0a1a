package potok

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Result is the settlement outcome of a unit of work: fulfilled with a value,
// fulfilled with null, or rejected with a reason. The zero Result is a
// fulfilled null.
type Result[T any] struct {
	id         uuid.UUID
	createdAt  time.Time
	value      T
	err        error
	isRejected bool
	hasValue   bool
}

func Fulfill[T any](v T) Result[T] {
	return Result[T]{
		value:     v,
		hasValue:  true,
		createdAt: time.Now().UTC(),
		id:        uuid.New(),
	}
}

// Null is a fulfilled outcome without a value. Nodes drop it unless they pass nulls.
func Null[T any]() Result[T] {
	return Result[T]{
		createdAt: time.Now().UTC(),
		id:        uuid.New(),
	}
}

// Reject creates a rejected outcome. A nil reason is allowed and is still a
// rejection: rejections are never dropped as null.
func Reject[T any](err error) Result[T] {
	return Result[T]{
		err:        err,
		isRejected: true,
		createdAt:  time.Now().UTC(),
		id:         uuid.New(),
	}
}

// RejectFrom carries the reason, id and creation time of a rejected outcome
// over to another value type.
func RejectFrom[In, Out any](from Result[In]) Result[Out] {
	return Result[Out]{
		err:        from.err,
		isRejected: from.isRejected,
		createdAt:  from.createdAt,
		id:         from.id,
	}
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Err() error {
	return r.err
}

func (r Result[T]) IsFulfilled() bool {
	return !r.isRejected
}

func (r Result[T]) IsRejected() bool {
	return r.isRejected
}

// IsNull reports a fulfilled outcome that carries no value.
func (r Result[T]) IsNull() bool {
	return !r.isRejected && !r.hasValue
}

func (r Result[T]) HasValue() bool {
	return r.hasValue
}

func (r Result[T]) CreatedAt() time.Time {
	return r.createdAt
}

func (r Result[T]) Id() uuid.UUID {
	return r.id
}

// Await makes an already settled Result usable as a unit of work.
func (r Result[T]) Await(context.Context) (Result[T], error) {
	return r, nil
}

func (r Result[T]) String() string {
	switch {
	case r.IsRejected():
		if r.err == nil {
			return "rejected(<nil>)"
		}
		return "rejected(" + r.err.Error() + ")"
	case r.IsNull():
		return "fulfilled(null)"
	default:
		return "fulfilled"
	}
}

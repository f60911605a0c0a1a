package potok

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ResultProvider[T any] interface {
	// Value returns the fulfilled value
	Value() T
	// CreatedAt time creation (UTC)
	CreatedAt() time.Time
	// Id identifies the outcome across chained nodes
	Id() uuid.UUID
}

// WithError defines an interface for outcomes that can be fulfilled or rejected
type WithError[T any] interface {
	ResultProvider[T]
	// Err returns the rejection reason, which may be nil even for a rejection
	Err() error
	// IsRejected returns true if the unit of work was rejected
	IsRejected() bool
}

// WithNull extends WithError with the null outcome used for dropping results
type WithNull[T any] interface {
	WithError[T]
	// IsNull returns true for a fulfilled outcome without a value
	IsNull() bool
}

// Awaitable is a unit of work: anything that eventually settles into a Result.
// The error is reserved for ctx being done before settlement.
type Awaitable[T any] interface {
	Await(ctx context.Context) (Result[T], error)
}

// Receiver is the {Enter, End} contract used by Chain. Nodes, stream sinks
// and user adapters all implement it.
type Receiver[T any] interface {
	Enter(unit Awaitable[T]) error
	End()
}

var (
	_ WithNull[int]  = Result[int]{}
	_ Awaitable[int] = Result[int]{}
	_ Awaitable[int] = (*Future[int])(nil)
	_ Receiver[int]  = (*Node[int])(nil)
)

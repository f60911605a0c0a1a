package potok

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrConfiguration is wrapped by every error caused by invalid arguments:
	// handler sets, options, chain targets and misuse of PushFinal.
	ErrConfiguration = errors.New("potok: configuration error")

	// ErrWriteAfterEnd is returned by Enter and Push past the node's closing
	// boundary. It is expected and safe to ignore.
	ErrWriteAfterEnd = fmt.Errorf("%w: write after end", ErrConfiguration)

	// ErrNullReason stands in for a rejection without a reason where an error
	// value is required.
	ErrNullReason = errors.New("potok: rejected without reason")
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// CompositionError reports a chained receiver that failed Enter with anything
// other than a write-after-end. The composition is broken and the node hands
// the error to its fatal handler instead of returning it.
type CompositionError struct {
	Node uuid.UUID
	Name string
	Err  error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("potok: chained receiver of node %s (%s) failed Enter with a non-write-after-end error: %v",
		e.Name, e.Node, e.Err)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

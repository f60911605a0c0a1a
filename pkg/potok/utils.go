package potok

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// await settles a unit without letting the caller's cancellation leak into it.
// Units that report an error instead of a Result are treated as rejected.
func await[T any](ctx context.Context, unit Awaitable[T]) Result[T] {
	if IsNil(unit) {
		return Null[T]()
	}
	r, err := unit.Await(ctx)
	if err != nil {
		return Reject[T](err)
	}
	return r
}

func awaitAll[T any](ctx context.Context, units []Awaitable[T]) []Result[T] {
	out := make([]Result[T], len(units))
	for i, u := range units {
		out[i] = await(ctx, u)
	}
	return out
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}

// isWriteAfterEnd also accepts foreign receivers that only mimic the message.
func isWriteAfterEnd(err error) bool {
	if errors.Is(err, ErrWriteAfterEnd) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "write after end")
}

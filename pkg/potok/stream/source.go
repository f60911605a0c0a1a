package stream

import (
	"bufio"
	"context"
	"io"

	"github.com/OJezu/potok/pkg/potok"
)

// FromSlice enters every value and ends r. It stops at the first refused
// Enter and returns its error.
func FromSlice[T any](r potok.Receiver[T], values []T) (int, error) {
	defer r.End()
	for i, v := range values {
		if err := r.Enter(potok.Fulfill(v)); err != nil {
			return i, err
		}
	}
	return len(values), nil
}

// FromResults is FromSlice for outcomes that already settled, rejections
// included.
func FromResults[T any](r potok.Receiver[T], results []potok.Result[T]) (int, error) {
	defer r.End()
	for i, res := range results {
		if err := r.Enter(res); err != nil {
			return i, err
		}
	}
	return len(results), nil
}

// FromChannel enters values until the channel is closed, then ends r.
// Errors received on errs are entered as rejections; errs may be nil.
// A done ctx ends r early.
func FromChannel[T any](ctx context.Context, r potok.Receiver[T], values <-chan T, errs <-chan error) (int, error) {
	defer r.End()
	n := 0
	for {
		select {
		case v, ok := <-values:
			if !ok {
				return n, nil
			}
			if err := r.Enter(potok.Fulfill(v)); err != nil {
				return n, err
			}
			n++
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err := r.Enter(potok.Reject[T](err)); err != nil {
				return n, err
			}
			n++
		case <-ctx.Done():
			return n, ctx.Err()
		}
	}
}

// FromReader enters every line of rd and ends r at EOF. A read error is
// entered as a rejection before ending.
func FromReader(ctx context.Context, r potok.Receiver[string], rd io.Reader) (int, error) {
	defer r.End()

	sc := bufio.NewScanner(rd)
	n := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := r.Enter(potok.Fulfill(sc.Text())); err != nil {
			return n, err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		if enterErr := r.Enter(potok.Reject[string](err)); enterErr != nil {
			return n, enterErr
		}
		n++
	}
	return n, nil
}

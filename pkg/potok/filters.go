package potok

import "context"

// FailOnReject waits for the node to end and returns the values of all
// outcomes, or the reason of the first rejection in arrival order. A
// rejection without a reason yields ErrNullReason.
func (n *Node[T]) FailOnReject(ctx context.Context) ([]T, error) {
	results, err := n.Wait(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]T, 0, len(results))
	for _, r := range results {
		if r.IsRejected() {
			return nil, reasonOf(r)
		}
		values = append(values, r.Value())
	}
	return values, nil
}

// OnlyFulfilled waits for the node to end and returns the values of its
// fulfilled outcomes. Passed nulls show up as zero values.
func (n *Node[T]) OnlyFulfilled(ctx context.Context) ([]T, error) {
	results, err := n.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return Values(results), nil
}

// OnlyRejected waits for the node to end and returns the reasons of its
// rejected outcomes.
func (n *Node[T]) OnlyRejected(ctx context.Context) ([]error, error) {
	results, err := n.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return Reasons(results), nil
}

// Values returns the values of the fulfilled outcomes, in order.
func Values[T any](results []Result[T]) []T {
	out := make([]T, 0, len(results))
	for _, r := range results {
		if r.IsFulfilled() {
			out = append(out, r.Value())
		}
	}
	return out
}

// Reasons returns the reasons of the rejected outcomes, in order.
func Reasons[T any](results []Result[T]) []error {
	out := make([]error, 0, len(results))
	for _, r := range results {
		if r.IsRejected() {
			out = append(out, reasonOf(r))
		}
	}
	return out
}

func reasonOf[T any](r Result[T]) error {
	if r.Err() == nil {
		return ErrNullReason
	}
	return r.Err()
}

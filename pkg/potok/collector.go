package potok

import "context"

// collector keeps outcomes in arrival order. It is guarded by the owning
// node's mutex; awaiting happens on snapshots outside of it.
type collector[T any] struct {
	entries   []Awaitable[T]
	passNulls bool
	discard   bool
}

func (c *collector[T]) add(a Awaitable[T]) {
	c.entries = append(c.entries, a)
}

func (c *collector[T]) replace(a Awaitable[T]) {
	c.entries = []Awaitable[T]{a}
}

func (c *collector[T]) len() int {
	return len(c.entries)
}

func (c *collector[T]) snapshot() []Awaitable[T] {
	out := make([]Awaitable[T], len(c.entries))
	copy(out, c.entries)
	return out
}

// keep is the null-drop rule: rejections always stay, fulfilled nulls only
// when the node passes nulls.
func (c *collector[T]) keep(r Result[T]) bool {
	return r.IsRejected() || c.passNulls || !r.IsNull()
}

func (c *collector[T]) filter(results []Result[T]) (kept []Result[T], dropped int) {
	kept = make([]Result[T], 0, len(results))
	for _, r := range results {
		if c.keep(r) {
			kept = append(kept, r)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

// collect awaits every unit of the snapshot and applies the null-drop rule.
func (c *collector[T]) collect(ctx context.Context, snapshot []Awaitable[T]) ([]Result[T], int) {
	kept, dropped := c.filter(awaitAll(ctx, snapshot))
	if c.discard {
		return []Result[T]{}, dropped
	}
	return kept, dropped
}

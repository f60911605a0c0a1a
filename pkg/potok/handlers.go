package potok

import (
	"context"
	"sort"
)

// Role names one slot of a handler set.
type Role string

const (
	RoleBeforeAll     Role = "beforeAll"
	RoleAll           Role = "all"
	RoleAfterAll      Role = "afterAll"
	RoleEach          Role = "each"
	RoleEachFulfilled Role = "eachFulfilled"
	RoleEachRejected  Role = "eachRejected"
)

type (
	BeforeAllFunc[T any]     func(ctx context.Context, n *Node[T]) error
	AllFunc[T any]           func(ctx context.Context, units []Result[T]) Result[T]
	AfterAllFunc[T any]      func(ctx context.Context, results []Result[T], n *Node[T]) Result[T]
	EachFunc[T any]          func(ctx context.Context, unit Awaitable[T], n *Node[T]) Result[T]
	EachFulfilledFunc[T any] func(ctx context.Context, value T, n *Node[T]) Result[T]
	EachRejectedFunc[T any]  func(ctx context.Context, reason error, n *Node[T]) Result[T]
)

// Handlers is the handler set of a Node. Every role is optional; the set is
// fixed once the Node is built.
//
// A handler returning a null Result drops the outcome unless the Node passes
// nulls. A rejected Result is always kept.
type Handlers[T any] struct {
	// BeforeAll runs once, asynchronously, before any per-task handler.
	BeforeAll BeforeAllFunc[T]
	// All receives every entered unit once they settled; its result becomes
	// the only outcome. It excludes every other role.
	All AllFunc[T]
	// AfterAll runs after the drain with the filtered outcomes. PushFinal is
	// usable while it runs.
	AfterAll AfterAllFunc[T]
	// Each receives the raw unit. It excludes EachFulfilled and EachRejected.
	Each EachFunc[T]
	// EachFulfilled receives the value of every fulfilled unit. A null unit
	// arrives as the zero value of T; use Each to tell nulls apart.
	EachFulfilled EachFulfilledFunc[T]
	// EachRejected receives the reason of every rejected unit.
	EachRejected EachRejectedFunc[T]
}

// Roles lists the roles that are set, sorted by name.
func (h Handlers[T]) Roles() []Role {
	roles := make([]Role, 0, 6)
	if h.BeforeAll != nil {
		roles = append(roles, RoleBeforeAll)
	}
	if h.All != nil {
		roles = append(roles, RoleAll)
	}
	if h.AfterAll != nil {
		roles = append(roles, RoleAfterAll)
	}
	if h.Each != nil {
		roles = append(roles, RoleEach)
	}
	if h.EachFulfilled != nil {
		roles = append(roles, RoleEachFulfilled)
	}
	if h.EachRejected != nil {
		roles = append(roles, RoleEachRejected)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

func (h Handlers[T]) Validate() error {
	if h.All != nil && len(h.Roles()) != 1 {
		return configErrorf("if »all« handler is declared, no other handlers can be declared")
	}
	if h.Each != nil && (h.EachFulfilled != nil || h.EachRejected != nil) {
		return configErrorf("if »each« handler is declared neither »eachRejected« nor »eachFulfilled« can be declared")
	}
	return nil
}

// expand rewrites an All set into the per-task no-op pair. The afterAll part
// is driven by the node itself since it needs the unfiltered units.
func (h Handlers[T]) expand() Handlers[T] {
	if h.All == nil {
		return h
	}
	return Handlers[T]{
		All: h.All,
		EachFulfilled: func(context.Context, T, *Node[T]) Result[T] {
			return Null[T]()
		},
		EachRejected: func(context.Context, error, *Node[T]) Result[T] {
			return Null[T]()
		},
	}
}

// HandlersFromMap builds a handler set from role names to functions, for
// callers that assemble handlers dynamically. Values must be functions with
// the role's exact signature.
func HandlersFromMap[T any](m map[string]any) (Handlers[T], error) {
	var h Handlers[T]

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := m[key]
		ok := false

		switch Role(key) {
		case RoleBeforeAll:
			switch f := v.(type) {
			case BeforeAllFunc[T]:
				h.BeforeAll, ok = f, f != nil
			case func(context.Context, *Node[T]) error:
				h.BeforeAll, ok = f, f != nil
			}
		case RoleAll:
			switch f := v.(type) {
			case AllFunc[T]:
				h.All, ok = f, f != nil
			case func(context.Context, []Result[T]) Result[T]:
				h.All, ok = f, f != nil
			}
		case RoleAfterAll:
			switch f := v.(type) {
			case AfterAllFunc[T]:
				h.AfterAll, ok = f, f != nil
			case func(context.Context, []Result[T], *Node[T]) Result[T]:
				h.AfterAll, ok = f, f != nil
			}
		case RoleEach:
			switch f := v.(type) {
			case EachFunc[T]:
				h.Each, ok = f, f != nil
			case func(context.Context, Awaitable[T], *Node[T]) Result[T]:
				h.Each, ok = f, f != nil
			}
		case RoleEachFulfilled:
			switch f := v.(type) {
			case EachFulfilledFunc[T]:
				h.EachFulfilled, ok = f, f != nil
			case func(context.Context, T, *Node[T]) Result[T]:
				h.EachFulfilled, ok = f, f != nil
			}
		case RoleEachRejected:
			switch f := v.(type) {
			case EachRejectedFunc[T]:
				h.EachRejected, ok = f, f != nil
			case func(context.Context, error, *Node[T]) Result[T]:
				h.EachRejected, ok = f, f != nil
			}
		default:
			return Handlers[T]{}, configErrorf("unknown handler type »%s«", key)
		}

		if !ok {
			return Handlers[T]{}, configErrorf("handler »%s« is not a function with the %s signature", key, key)
		}
	}

	if err := h.Validate(); err != nil {
		return Handlers[T]{}, err
	}
	return h, nil
}

package potok

import (
	"context"
	"sync"
)

// link is one chained receiver. Deliveries are serialized in reservation
// order: every ticket waits for its predecessor. pending counts tickets not
// delivered yet.
type link[T any] struct {
	target  Receiver[T]
	tail    chan struct{} // guarded by the upstream node's mutex
	pending sync.WaitGroup
}

type ticket[T any] struct {
	link *link[T]
	prev chan struct{}
	next chan struct{}
}

func newLink[T any](target Receiver[T]) *link[T] {
	tail := make(chan struct{})
	close(tail)
	return &link[T]{target: target, tail: tail}
}

// reserve must be called with the upstream node's mutex held.
func (l *link[T]) reserve() ticket[T] {
	l.pending.Add(1)
	t := ticket[T]{link: l, prev: l.tail, next: make(chan struct{})}
	l.tail = t.next
	return t
}

// Chain forwards every non-null outcome of n to r, backlog first, and ends r
// once n ended and all forwards were delivered. It returns r for fluent use.
func (n *Node[T]) Chain(r Receiver[T]) (Receiver[T], error) {
	if err := n.attach(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Branch is Chain returning n itself, so several receivers can hang off one
// node.
func (n *Node[T]) Branch(r Receiver[T]) (*Node[T], error) {
	if err := n.attach(r); err != nil {
		return nil, err
	}
	return n, nil
}

// Pipe is Chain keeping the concrete type of the receiver:
//
//	out, err := potok.Pipe(src, sink)
func Pipe[T any, R Receiver[T]](n *Node[T], r R) (R, error) {
	if err := n.attach(r); err != nil {
		var zero R
		return zero, err
	}
	return r, nil
}

func (n *Node[T]) attach(r Receiver[T]) error {
	if IsNil(r) {
		return configErrorf("chained receiver must implement Enter and End")
	}
	if Receiver[T](n) == r {
		return configErrorf("node cannot be chained to itself")
	}

	l := newLink(r)

	n.mu.Lock()
	var backlog []Awaitable[T]
	if !n.cfg.discardResults {
		backlog = n.results.snapshot()
	}
	tickets := make([]ticket[T], len(backlog))
	for i := range backlog {
		tickets[i] = l.reserve()
	}
	n.links = append(n.links, l)
	n.mu.Unlock()

	n.logger.Debug("receiver chained", "backlog", len(backlog))
	for i, a := range backlog {
		n.pass(tickets[i], a)
	}

	go n.endWhenDelivered(l)
	return nil
}

// reserveLocked takes one ticket on every link, in link order.
func (n *Node[T]) reserveLocked() []ticket[T] {
	if len(n.links) == 0 {
		return nil
	}
	tickets := make([]ticket[T], len(n.links))
	for i, l := range n.links {
		tickets[i] = l.reserve()
	}
	return tickets
}

func (n *Node[T]) forward(tickets []ticket[T], a Awaitable[T]) {
	for _, t := range tickets {
		n.pass(t, a)
	}
}

// pass delivers a unit on its ticket. With pass_nulls the unit is handed
// over right away, still pending; otherwise it is awaited first so nulls can
// be left out.
func (n *Node[T]) pass(t ticket[T], a Awaitable[T]) {
	if n.cfg.passNulls {
		n.deliverInTurn(t, a, false)
		return
	}
	go func() {
		skip := await(n.ctx, a).IsNull()
		n.deliverInTurn(t, a, skip)
	}()
}

func (n *Node[T]) deliverInTurn(t ticket[T], a Awaitable[T], skip bool) {
	defer t.link.pending.Done()
	defer close(t.next)
	<-t.prev
	if !skip {
		n.deliver(t.link, a)
	}
}

func (n *Node[T]) deliver(l *link[T], a Awaitable[T]) {
	err := enterSafely(l.target, a)
	if err == nil {
		n.emit(Event{Type: EventForwarded})
		return
	}
	if isWriteAfterEnd(err) {
		n.logger.Debug("chained receiver already ended", "err", err)
		return
	}
	n.fatal(&CompositionError{Node: n.id, Name: n.cfg.name, Err: err})
}

func enterSafely[T any](r Receiver[T], a Awaitable[T]) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(p)
		}
	}()
	return r.Enter(a)
}

func (n *Node[T]) endWhenDelivered(l *link[T]) {
	<-n.completion.Done()
	l.pending.Wait()

	defer func() {
		if p := recover(); p != nil {
			n.fatal(&CompositionError{Node: n.id, Name: n.cfg.name, Err: panicError(p)})
		}
	}()
	l.target.End()
}

// rendezvous counts End calls on a combining node. The node really ends on
// the call that follows one End per input.
type rendezvous struct {
	need  int
	count int
}

func (r *rendezvous) tick() bool {
	c := r.count
	r.count++
	return c == r.need
}

// Combine returns a node that receives the outcomes of every input and ends
// once all of them ended. With no inputs it ends right away.
func Combine[T any](ctx context.Context, nodes []*Node[T], opts ...Option) (*Node[T], error) {
	for i, up := range nodes {
		if up == nil {
			return nil, configErrorf("combine input %d is nil", i)
		}
	}

	receiver, err := New(ctx, Handlers[T]{}, opts...)
	if err != nil {
		return nil, err
	}
	receiver.barrier = &rendezvous{need: len(nodes)}

	for _, up := range nodes {
		if _, err := up.Chain(receiver); err != nil {
			return nil, err
		}
	}
	receiver.End()
	return receiver, nil
}

type converter[In, Out any] struct {
	ctx    context.Context
	target Receiver[Out]
	fn     func(ctx context.Context, v In) (Out, error)
}

// Convert adapts a Receiver of Out into a Receiver of In, so nodes of
// different value types can be chained. fn maps fulfilled values; its error
// becomes a rejection. Nulls and rejections cross over unchanged.
func Convert[In, Out any](ctx context.Context, target Receiver[Out], fn func(ctx context.Context, v In) (Out, error)) (Receiver[In], error) {
	if IsNil(target) {
		return nil, configErrorf("convert target must implement Enter and End")
	}
	if fn == nil {
		return nil, configErrorf("convert function is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &converter[In, Out]{ctx: context.WithoutCancel(ctx), target: target, fn: fn}, nil
}

func (c *converter[In, Out]) Enter(unit Awaitable[In]) error {
	out := NewFuture[Out]()
	if err := c.target.Enter(out); err != nil {
		return err
	}
	go func() {
		defer func() {
			if p := recover(); p != nil {
				out.Settle(Reject[Out](panicError(p)))
			}
		}()
		r := await(c.ctx, unit)
		switch {
		case r.IsRejected():
			out.Settle(RejectFrom[In, Out](r))
		case r.IsNull():
			out.Settle(Null[Out]())
		default:
			v, err := c.fn(c.ctx, r.Value())
			if err != nil {
				out.Settle(Reject[Out](err))
				return
			}
			out.Settle(Fulfill(v))
		}
	}()
	return nil
}

func (c *converter[In, Out]) End() {
	c.target.End()
}

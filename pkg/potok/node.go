package potok

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle stage of a Node. Transitions only move forward.
type State uint8

const (
	// StateOpen accepts Enter and Push.
	StateOpen State = iota
	// StateClosing waits for tracked units to settle. Enter is refused unless
	// the node was ended lazily.
	StateClosing
	// StateDraining has closed the results; AfterAll may run.
	StateDraining
	// StateFinalizing collects the final outcome list.
	StateFinalizing
	// StateEnded has settled the completion future.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateDraining:
		return "draining"
	case StateFinalizing:
		return "finalizing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Node accepts units of work, runs each through its handler set and collects
// the outcomes in arrival order. It is safe for concurrent use.
type Node[T any] struct {
	id       uuid.UUID
	ctx      context.Context
	cfg      config
	logger   *slog.Logger
	handlers Handlers[T]

	gate       *Future[struct{}]
	completion *Future[[]Result[T]]

	mu            sync.Mutex
	state         State
	closed        bool // refuses Enter
	resultsClosed bool // refuses Push
	finalClosed   bool // refuses PushFinal
	results       collector[T]
	units         []Awaitable[T] // raw units, kept only for All
	links         []*link[T]
	barrier       *rendezvous
}

// New builds a Node and schedules BeforeAll. The context provides values to
// the handlers; its cancellation is ignored since accepted work is always
// awaited.
func New[T any](ctx context.Context, handlers Handlers[T], opts ...Option) (*Node[T], error) {
	if err := handlers.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := newConfig(opts)
	n := &Node[T]{
		id:         uuid.New(),
		ctx:        context.WithoutCancel(ctx),
		cfg:        cfg,
		handlers:   handlers.expand(),
		gate:       NewFuture[struct{}](),
		completion: NewFuture[[]Result[T]](),
		results: collector[T]{
			passNulls: cfg.passNulls,
			discard:   cfg.discardResults,
		},
	}
	n.logger = cfg.logger.With("node", cfg.name, "node_id", n.id.String())
	n.logger.Debug("node created", "roles", handlers.Roles(), "pass_nulls", cfg.passNulls)

	n.startBeforeAll()
	return n, nil
}

func (n *Node[T]) ID() uuid.UUID {
	return n.id
}

func (n *Node[T]) Name() string {
	return n.cfg.name
}

func (n *Node[T]) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Enter accepts a unit of work. A nil unit counts as a fulfilled null.
// It fails with ErrWriteAfterEnd once the node stopped accepting.
func (n *Node[T]) Enter(unit Awaitable[T]) error {
	if IsNil(unit) {
		unit = Null[T]()
	}
	task := NewFuture[T]()

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrWriteAfterEnd
	}
	if n.handlers.All != nil {
		n.units = append(n.units, unit)
	}
	tickets := n.appendLocked(task)
	n.mu.Unlock()

	n.emit(Event{Type: EventEntered})
	go n.settle(unit, task)
	n.forward(tickets, task)
	return nil
}

// EnterValue enters an already fulfilled value.
func (n *Node[T]) EnterValue(v T) error {
	return n.Enter(Fulfill(v))
}

// Push appends an outcome directly, bypassing the per-task handlers. It fails
// with ErrWriteAfterEnd once the results are closed.
func (n *Node[T]) Push(unit Awaitable[T]) error {
	if IsNil(unit) {
		unit = Null[T]()
	}

	n.mu.Lock()
	if n.resultsClosed {
		n.mu.Unlock()
		return ErrWriteAfterEnd
	}
	tickets := n.appendLocked(unit)
	n.mu.Unlock()

	n.emit(Event{Type: EventPushed})
	n.forward(tickets, unit)
	return nil
}

// PushFinal is Push for the AfterAll handler: it only works after the results
// were closed and before the node ended.
func (n *Node[T]) PushFinal(unit Awaitable[T]) error {
	if IsNil(unit) {
		unit = Null[T]()
	}

	n.mu.Lock()
	if !n.resultsClosed || n.finalClosed {
		n.mu.Unlock()
		return configErrorf("PushFinal must be called from the afterAll handler before it returns")
	}
	tickets := n.appendLocked(unit)
	n.mu.Unlock()

	n.emit(Event{Type: EventPushed})
	n.forward(tickets, unit)
	return nil
}

// End stops accepting units and finishes the node once everything entered so
// far has settled. Repeated calls are no-ops.
func (n *Node[T]) End() {
	n.end(false)
}

// LazyEnd is End that keeps accepting units until a full settlement pass adds
// nothing new, so handlers can still enter follow-up work.
func (n *Node[T]) LazyEnd() {
	n.end(true)
}

// Ended returns the completion future. It is fulfilled with the final outcome
// list or rejected when BeforeAll or AfterAll failed.
func (n *Node[T]) Ended() *Future[[]Result[T]] {
	return n.completion
}

// Wait blocks until the node ended or ctx is done.
func (n *Node[T]) Wait(ctx context.Context) ([]Result[T], error) {
	r, err := n.completion.Await(ctx)
	if err != nil {
		return nil, err
	}
	if r.IsRejected() {
		return nil, r.Err()
	}
	return r.Value(), nil
}

func (n *Node[T]) end(lazy bool) {
	n.mu.Lock()
	if n.barrier != nil && !n.barrier.tick() {
		n.mu.Unlock()
		return
	}
	if n.state != StateOpen {
		n.mu.Unlock()
		return
	}
	n.state = StateClosing
	n.closed = !lazy
	n.mu.Unlock()

	n.logger.Debug("node ending", "lazy", lazy)
	n.emit(Event{Type: EventStateChanged, State: StateClosing})
	go n.drain()
}

// appendLocked records a unit and reserves a forward on every link.
func (n *Node[T]) appendLocked(unit Awaitable[T]) []ticket[T] {
	n.results.add(unit)
	return n.reserveLocked()
}

func (n *Node[T]) startBeforeAll() {
	if n.handlers.BeforeAll == nil {
		n.gate.Settle(Fulfill(struct{}{}))
		return
	}
	go func() {
		if err := n.callBeforeAll(); err != nil {
			n.logger.Warn("beforeAll failed", "err", err)
			n.gate.Settle(Reject[struct{}](fmt.Errorf("beforeAll: %w", err)))
			return
		}
		n.gate.Settle(Fulfill(struct{}{}))
	}()
}

func (n *Node[T]) callBeforeAll() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(p)
		}
	}()
	return n.handlers.BeforeAll(n.ctx, n)
}

// settle drives one task: wait for the BeforeAll gate, then the handlers.
func (n *Node[T]) settle(unit Awaitable[T], task *Future[T]) {
	<-n.gate.Done()
	r := n.handle(unit)
	n.emit(Event{Type: EventSettled, Outcome: outcomeOf(r), Err: r.Err()})
	task.Settle(r)
}

func (n *Node[T]) handle(unit Awaitable[T]) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = Reject[T](panicError(p))
		}
	}()

	h := n.handlers
	if h.Each != nil {
		return h.Each(n.ctx, unit, n)
	}

	r := await(n.ctx, unit)
	switch {
	case r.IsRejected():
		if h.EachRejected != nil {
			return h.EachRejected(n.ctx, r.Err(), n)
		}
	case h.EachFulfilled != nil:
		return h.EachFulfilled(n.ctx, r.Value(), n)
	}
	return r
}

func (n *Node[T]) drain() {
	gate, _ := n.gate.Await(n.ctx)
	n.awaitFixedPoint()

	var err error
	switch {
	case gate.IsRejected():
		err = gate.Err()
	case n.handlers.All != nil:
		err = n.runAll()
	case n.handlers.AfterAll != nil:
		err = n.runAfterAll()
	}
	n.finish(err)
}

// awaitFixedPoint settles everything tracked until a pass adds no new entry,
// then closes the node for Enter and Push in the same critical section.
func (n *Node[T]) awaitFixedPoint() {
	for {
		n.mu.Lock()
		snapshot := n.results.snapshot()
		n.mu.Unlock()

		awaitAll(n.ctx, snapshot)

		n.mu.Lock()
		if n.results.len() == len(snapshot) {
			n.closed = true
			n.resultsClosed = true
			n.state = StateDraining
			n.mu.Unlock()
			n.emit(Event{Type: EventStateChanged, State: StateDraining})
			return
		}
		n.mu.Unlock()
	}
}

func (n *Node[T]) runAll() (err error) {
	n.mu.Lock()
	units := make([]Awaitable[T], len(n.units))
	copy(units, n.units)
	n.mu.Unlock()

	collected := awaitAll(n.ctx, units)
	r, err := n.callAll(collected)
	if err != nil {
		return fmt.Errorf("all: %w", err)
	}

	n.mu.Lock()
	n.results.replace(r)
	tickets := n.reserveLocked()
	n.mu.Unlock()

	n.forward(tickets, r)
	return nil
}

func (n *Node[T]) callAll(collected []Result[T]) (r Result[T], err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(p)
		}
	}()
	return n.handlers.All(n.ctx, collected), nil
}

func (n *Node[T]) runAfterAll() error {
	n.mu.Lock()
	snapshot := n.results.snapshot()
	n.mu.Unlock()

	filtered, _ := n.results.filter(awaitAll(n.ctx, snapshot))
	r, err := n.callAfterAll(filtered)
	if err != nil {
		return fmt.Errorf("afterAll: %w", err)
	}

	n.mu.Lock()
	n.results.add(r)
	n.mu.Unlock()
	return nil
}

func (n *Node[T]) callAfterAll(results []Result[T]) (r Result[T], err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(p)
		}
	}()
	return n.handlers.AfterAll(n.ctx, results, n), nil
}

func (n *Node[T]) finish(failure error) {
	n.mu.Lock()
	n.finalClosed = true
	n.state = StateFinalizing
	snapshot := n.results.snapshot()
	n.mu.Unlock()
	n.emit(Event{Type: EventStateChanged, State: StateFinalizing})

	results, dropped := n.results.collect(n.ctx, snapshot)
	for i := 0; i < dropped; i++ {
		n.emit(Event{Type: EventDropped, Outcome: OutcomeNull})
	}

	n.mu.Lock()
	n.state = StateEnded
	n.mu.Unlock()
	n.emit(Event{Type: EventStateChanged, State: StateEnded})

	if failure != nil {
		n.logger.Debug("node ended with failure", "err", failure)
		n.emit(Event{Type: EventEnded, State: StateEnded, Outcome: OutcomeRejected, Err: failure})
		n.completion.Settle(Reject[[]Result[T]](failure))
		return
	}

	n.logger.Debug("node ended", "results", len(results), "dropped", dropped)
	n.emit(Event{Type: EventEnded, State: StateEnded, Outcome: OutcomeFulfilled})
	n.completion.Settle(Fulfill(results))
}

func (n *Node[T]) emit(e Event) {
	e.Time = time.Now()
	e.Node = n.id
	e.Name = n.cfg.name
	n.cfg.observer.HandleEvent(e)
}

func (n *Node[T]) fatal(err error) {
	n.cfg.onFatal(err)
}

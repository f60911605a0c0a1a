package potok

import (
	"time"

	"github.com/google/uuid"
)

// EventType describes the kind of lifecycle event emitted by a Node.
type EventType uint8

const (
	// EventEntered fires when Enter accepts a unit.
	EventEntered EventType = iota
	// EventPushed fires when Push or PushFinal appends an outcome.
	EventPushed
	// EventSettled fires when a per-task handler produced its outcome, before
	// the outcome becomes visible to awaiters.
	EventSettled
	// EventDropped fires for every null outcome removed by the collector.
	EventDropped
	// EventForwarded fires after a chained receiver accepted a unit.
	EventForwarded
	// EventStateChanged fires on every state machine transition.
	EventStateChanged
	// EventEnded fires once, right before the completion future settles.
	EventEnded
)

func (t EventType) String() string {
	switch t {
	case EventEntered:
		return "entered"
	case EventPushed:
		return "pushed"
	case EventSettled:
		return "settled"
	case EventDropped:
		return "dropped"
	case EventForwarded:
		return "forwarded"
	case EventStateChanged:
		return "state_changed"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is a fire-and-forget notification about a Node.
type Event struct {
	Time    time.Time
	Err     error
	Name    string
	Type    EventType
	State   State
	Node    uuid.UUID
	Outcome OutcomeKind
}

// OutcomeKind classifies the outcome carried by Settled and Ended events.
type OutcomeKind uint8

const (
	OutcomeNone OutcomeKind = iota
	OutcomeFulfilled
	OutcomeNull
	OutcomeRejected
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFulfilled:
		return "fulfilled"
	case OutcomeNull:
		return "null"
	case OutcomeRejected:
		return "rejected"
	default:
		return "none"
	}
}

func outcomeOf[T any](r Result[T]) OutcomeKind {
	switch {
	case r.IsRejected():
		return OutcomeRejected
	case r.IsNull():
		return OutcomeNull
	default:
		return OutcomeFulfilled
	}
}

// Observer can be implemented by callers who want to watch node lifecycle
// events (metrics, loggers, tests). HandleEvent may be called concurrently.
type Observer interface {
	HandleEvent(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) HandleEvent(e Event) {
	f(e)
}

type multiObserver []Observer

func (m multiObserver) HandleEvent(e Event) {
	for _, o := range m {
		o.HandleEvent(e)
	}
}

// MultiObserver fans every event out to all non-nil observers in order.
func MultiObserver(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if IsNil(o) {
			continue
		}
		if m, ok := o.(multiObserver); ok {
			out = append(out, m...)
			continue
		}
		out = append(out, o)
	}
	return out
}

type nopObserver struct{}

func (nopObserver) HandleEvent(Event) {}

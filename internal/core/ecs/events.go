package ecs

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// EventKind names a category of state change.
type EventKind string

const (
	EventGameStart       EventKind = "game.start"
	EventGameOver        EventKind = "game.over"
	EventZoneChange      EventKind = "zone.change"
	EventAttributeChange EventKind = "attribute.change"
	EventActionPerformed EventKind = "action.performed"
	EventTurnChange      EventKind = "turn.change"
)

// Event is a value describing an intended or completed state change.
type Event interface {
	EventKind() EventKind
}

// Phase distinguishes the two observation points around a mutation.
type Phase uint8

const (
	PhasePre Phase = iota
	PhasePost
)

// Observer is invoked once per phase for every executed event of the kind it
// subscribed to. Returning an error from the pre phase (a veto being the
// typed case) aborts the event before mutation.
type Observer func(e Event, p Phase) error

// VetoError is a typed rejection of an event by a pre-phase observer.
type VetoError struct {
	Reason string
}

func (e *VetoError) Error() string {
	return "event vetoed: " + e.Reason
}

// Veto builds the error a pre-phase observer returns to reject an event.
func Veto(reason string) error {
	return &VetoError{Reason: reason}
}

// IsVeto reports whether err is (or wraps) a veto.
func IsVeto(err error) bool {
	var v *VetoError
	return errors.As(err, &v)
}

// Subscription is a handle to a registered observer.
type Subscription interface {
	ID() string
	Cancel()
}

type subscription struct {
	id      string
	kind    EventKind
	fn      Observer
	channel *EventChannel
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Cancel() {
	subs := s.channel.subs[s.kind]
	for i, sub := range subs {
		if sub.id == s.id {
			s.channel.subs[s.kind] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// EventChannel wraps every state-changing operation in an ordered pre/post
// observer pair. Observers for one kind run in registration order, which
// makes delivery deterministic and reproducible.
//
// Like the store it belongs to, the channel expects all calls to arrive
// through the owning match's serialization point.
type EventChannel struct {
	subs map[EventKind][]*subscription
}

func NewEventChannel() *EventChannel {
	return &EventChannel{
		subs: make(map[EventKind][]*subscription),
	}
}

// Subscribe registers an observer for one event kind.
func (c *EventChannel) Subscribe(kind EventKind, fn Observer) Subscription {
	s := &subscription{
		id:      uuid.NewString(),
		kind:    kind,
		fn:      fn,
		channel: c,
	}
	c.subs[kind] = append(c.subs[kind], s)
	return s
}

// SubscribePost registers an observer that only cares about completed events.
func (c *EventChannel) SubscribePost(kind EventKind, fn func(e Event) error) Subscription {
	return c.Subscribe(kind, func(e Event, p Phase) error {
		if p != PhasePost {
			return nil
		}
		return fn(e)
	})
}

// Execute fires pre-phase observers for e, runs mutate once all of them
// completed without error or veto, then fires post-phase observers. The
// mutation happens strictly between the two phases; post never fires without
// a completed pre. Observer failures are returned to the caller, never
// swallowed, and terminate processing of the event.
func (c *EventChannel) Execute(e Event, mutate func()) error {
	subs := c.subs[e.EventKind()]
	for _, s := range subs {
		if err := s.fn(e, PhasePre); err != nil {
			return err
		}
	}
	if mutate != nil {
		mutate()
	}
	for _, s := range subs {
		if err := s.fn(e, PhasePost); err != nil {
			return err
		}
	}
	return nil
}

// GameStartEvent fires once when match setup completes.
type GameStartEvent struct{}

func (GameStartEvent) EventKind() EventKind { return EventGameStart }

// GameOverEvent fires when a ruleset decides the match is decided.
type GameOverEvent struct {
	Winner *Entity // nil when the match has no winner
}

func (GameOverEvent) EventKind() EventKind { return EventGameOver }

// ZoneChangeEvent describes one entity moving between two zones. In the pre
// phase the card is still in Source; in the post phase it is in Destination.
type ZoneChangeEvent struct {
	Card        *Entity
	Source      *Entity
	Destination *Entity
}

func (ZoneChangeEvent) EventKind() EventKind { return EventZoneChange }

// AttributeChangeEvent describes a single numeric attribute changing value.
type AttributeChangeEvent struct {
	Target *Entity
	Key    string
	From   int
	To     int
}

func (AttributeChangeEvent) EventKind() EventKind { return EventAttributeChange }

// ActionPerformedEvent wraps the resolution of one action.
type ActionPerformedEvent struct {
	Action  *Action
	Targets []*Entity
}

func (ActionPerformedEvent) EventKind() EventKind { return EventActionPerformed }

// TurnChangeEvent describes the active seat passing between players.
type TurnChangeEvent struct {
	From *Entity
	To   *Entity
}

func (TurnChangeEvent) EventKind() EventKind { return EventTurnChange }

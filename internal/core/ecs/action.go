package ecs

import (
	"github.com/pkg/errors"
)

var (
	ErrActionNotAllowed = errors.New("action is not allowed in the current state")
	ErrInvalidTargets   = errors.New("invalid targets for action")
)

var _ Component = (*ActionsComponent)(nil)

// TargetSet describes one slot of targets an action needs: how many, and
// which entities qualify.
type TargetSet struct {
	Min      int
	Max      int
	Eligible func(target *Entity) bool
}

// Action is a legal, targetable operation an entity may perform. Actions are
// enumerated fresh after every state-changing event; an action instance from
// a previous state must never be reused.
type Action struct {
	Name       string
	Owner      *Entity // the entity the action belongs to
	Controller *Entity // the player entity allowed to invoke it
	Allowed    func(a *Action) bool
	Targets    []TargetSet
	Perform    func(a *Action, targets []*Entity) error
}

// TargetRequired reports whether resolving the action needs at least one
// chosen target.
func (a *Action) TargetRequired() bool {
	for _, ts := range a.Targets {
		if ts.Min > 0 {
			return true
		}
	}
	return false
}

// EligibleTargets enumerates the entities currently qualifying for target
// set i, in id order.
func (a *Action) EligibleTargets(i int) []*Entity {
	if i < 0 || i >= len(a.Targets) {
		return nil
	}
	var out []*Entity
	for _, e := range a.Owner.store.Entities() {
		if a.Targets[i].Eligible(e) {
			out = append(out, e)
		}
	}
	return out
}

// ActionsComponent lists the actions an entity offers. Predicates decide per
// state whether each one is currently legal.
type ActionsComponent struct {
	Actions []*Action
}

func (*ActionsComponent) ComponentType() ComponentType { return ComponentActions }

// LegalActions recomputes the currently legal actions of an entity from the
// live store state. Results must not be cached across a state-changing event.
func LegalActions(e *Entity) []*Action {
	ac, ok := Get[*ActionsComponent](e, ComponentActions)
	if !ok {
		return nil
	}
	var out []*Action
	for _, a := range ac.Actions {
		if a.Allowed == nil || a.Allowed(a) {
			out = append(out, a)
		}
	}
	return out
}

// FindAction returns the named action of an entity regardless of current
// legality.
func FindAction(e *Entity, name string) (*Action, bool) {
	ac, ok := Get[*ActionsComponent](e, ComponentActions)
	if !ok {
		return nil, false
	}
	for _, a := range ac.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// ResolveAction validates target cardinality and eligibility against the
// action's predicates, then performs the action wrapped in one
// ActionPerformedEvent. Validation failures reject the call before any
// mutation.
func ResolveAction(a *Action, targets []*Entity) error {
	if a.Allowed != nil && !a.Allowed(a) {
		return errors.Wrapf(ErrActionNotAllowed, "%s on entity %d", a.Name, a.Owner.ID())
	}
	if err := validateTargets(a, targets); err != nil {
		return err
	}
	ev := ActionPerformedEvent{Action: a, Targets: targets}
	var performErr error
	if err := a.Owner.store.Events().Execute(ev, func() {
		if a.Perform != nil {
			performErr = a.Perform(a, targets)
		}
	}); err != nil {
		return err
	}
	return performErr
}

func validateTargets(a *Action, targets []*Entity) error {
	if len(a.Targets) == 0 {
		if len(targets) != 0 {
			return errors.Wrapf(ErrInvalidTargets, "%s takes no targets, got %d", a.Name, len(targets))
		}
		return nil
	}
	// Chosen targets are validated against the first target set; multi-set
	// actions resolve one set per invocation.
	ts := a.Targets[0]
	if len(targets) < ts.Min || len(targets) > ts.Max {
		return errors.Wrapf(ErrInvalidTargets, "%s wants %d..%d targets, got %d", a.Name, ts.Min, ts.Max, len(targets))
	}
	for _, t := range targets {
		if ts.Eligible != nil && !ts.Eligible(t) {
			return errors.Wrapf(ErrInvalidTargets, "entity %d is not eligible for %s", t.ID(), a.Name)
		}
	}
	return nil
}

// Package ai hosts the decision strategies synthetic players run against a
// match's entity store. Strategies are pure readers of game state: they pick
// an action, the session applies it through the same path as a network
// client's message.
package ai

import (
	"time"

	"github.com/deckforge/deckforge/internal/core/ecs"
)

// ComponentAI marks a player entity as controlled by a synthetic client.
const ComponentAI ecs.ComponentType = "ai"

var _ ecs.Component = (*ControlledComponent)(nil)

// ControlledComponent attaches a strategy and its think delay to a player
// entity. The delay paces turns; zero is legal and means "act immediately".
type ControlledComponent struct {
	Strategy Strategy
	Delay    time.Duration
}

func (*ControlledComponent) ComponentType() ecs.ComponentType { return ComponentAI }

// Decision is one chosen action application with its chosen targets.
type Decision struct {
	Action  *ecs.Action
	Targets []*ecs.Entity
}

// Strategy picks zero or one action for the given player. A nil decision
// with a nil error means no action is worth taking (or none is legal), which
// is a normal outcome and distinct from an error.
type Strategy interface {
	Act(player *ecs.Entity) (*Decision, error)
}

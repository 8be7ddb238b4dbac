// Package game defines the extension point between the match engine and
// concrete rule packs ("mods"). The engine drives sessions and broadcasts;
// rulesets decide zones, turn flow and win conditions.
package game

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/deckforge/deckforge/internal/core/ecs"
)

var ErrUnknownMod = errors.New("unknown mod")

// Ruleset is instantiated once per match and owns all content-specific
// state: which zones exist, whose turn it is, when the match is decided.
type Ruleset interface {
	Name() string

	// Setup populates a fresh store: player attributes, zones, decks,
	// opening hands. Invoked exactly once, before any broadcast observers
	// are attached.
	Setup(store *ecs.Store, players []*ecs.Entity) error

	// OnActionResolved runs after every resolved action and reports whether
	// the match is decided.
	OnActionResolved(store *ecs.Store, action *ecs.Action) (gameOver bool)
}

// Registry maps mod names to ruleset factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() Ruleset
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]func() Ruleset)}
}

func (r *Registry) Register(name string, factory func() Ruleset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New instantiates a fresh ruleset for one match.
func (r *Registry) New(name string) (Ruleset, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMod, "%q", name)
	}
	return factory(), nil
}

// Mods lists the registered mod names, sorted.
func (r *Registry) Mods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package ai

import (
	"math/rand"
	"sync"

	"github.com/deckforge/deckforge/internal/core/ecs"
)

// Scorer rates a legal action. Negative scores mean "never take this".
type Scorer func(a *ecs.Action) float64

var _ Strategy = (*Scoring)(nil)

// Scoring enumerates every legal action the player controls, scores each
// with a pluggable heuristic, and takes the best non-negative one. Ties go
// to the earliest enumeration (entity id, then declaration order), which
// keeps the strategy deterministic for a fixed scorer.
type Scoring struct {
	score Scorer
}

func NewScoring(score Scorer) *Scoring {
	return &Scoring{score: score}
}

func (s *Scoring) Act(player *ecs.Entity) (*Decision, error) {
	var best *Decision
	bestScore := -1.0
	for _, e := range player.Store().EntitiesWith(ecs.ComponentActions) {
		for _, a := range ecs.LegalActions(e) {
			if a.Controller != player {
				continue
			}
			targets, ok := chooseTargets(a)
			if !ok {
				continue
			}
			if sc := s.score(a); sc > bestScore {
				bestScore = sc
				best = &Decision{Action: a, Targets: targets}
			}
		}
	}
	return best, nil
}

// chooseTargets fills the minimum cardinality of the first target set from
// the currently eligible entities. Actions whose requirement cannot be met
// are not candidates.
func chooseTargets(a *ecs.Action) ([]*ecs.Entity, bool) {
	if len(a.Targets) == 0 {
		return nil, true
	}
	need := a.Targets[0].Min
	if need == 0 {
		return nil, true
	}
	eligible := a.EligibleTargets(0)
	if len(eligible) < need {
		return nil, false
	}
	return eligible[:need], true
}

// Built-in scorers backing the named profiles.

func aggressiveScorer(a *ecs.Action) float64 {
	switch a.Name {
	case "attack":
		return 30
	case "play":
		return 20
	default:
		return 1
	}
}

func balancedScorer(a *ecs.Action) float64 {
	switch a.Name {
	case "play":
		return 20
	case "attack":
		return 10
	default:
		return 1
	}
}

// passiveScorer takes whatever keeps the turn moving and nothing else.
func passiveScorer(a *ecs.Action) float64 {
	if a.Name == "end_turn" {
		return 1
	}
	return -1
}

// chaosScorer guards its source: one lobby agent's strategy is shared by
// every match that seats it, and each match calls in under its own lock.
func chaosScorer(rng *rand.Rand) Scorer {
	var mu sync.Mutex
	return func(a *ecs.Action) float64 {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64()
	}
}

package ai

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckforge/deckforge/internal/core/ecs"
)

func scoringFixture(t *testing.T) (*ecs.Store, *ecs.Entity, *ecs.Entity) {
	t.Helper()
	s := ecs.NewStore()
	me := s.CreateEntity().Attach(&ecs.PlayerComponent{Index: 0, Name: "me"})
	them := s.CreateEntity().Attach(&ecs.PlayerComponent{Index: 1, Name: "them"})
	return s, me, them
}

func TestScoringPicksHighestScore(t *testing.T) {
	s, me, _ := scoringFixture(t)
	card := s.CreateEntity()
	card.Attach(&ecs.ActionsComponent{Actions: []*ecs.Action{
		{Name: "play", Owner: card, Controller: me},
		{Name: "attack", Owner: card, Controller: me},
		{Name: "end_turn", Owner: card, Controller: me},
	}})

	d, err := NewScoring(aggressiveScorer).Act(me)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "attack", d.Action.Name)
}

func TestScoringIgnoresOtherControllers(t *testing.T) {
	s, me, them := scoringFixture(t)
	card := s.CreateEntity()
	card.Attach(&ecs.ActionsComponent{Actions: []*ecs.Action{
		{Name: "attack", Owner: card, Controller: them},
	}})

	d, err := NewScoring(aggressiveScorer).Act(me)
	require.NoError(t, err)
	assert.Nil(t, d, "no legal action for this player means no decision")
}

func TestScoringSkipsNegativeScores(t *testing.T) {
	s, me, _ := scoringFixture(t)
	card := s.CreateEntity()
	card.Attach(&ecs.ActionsComponent{Actions: []*ecs.Action{
		{Name: "attack", Owner: card, Controller: me},
	}})

	d, err := NewScoring(passiveScorer).Act(me)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestScoringFillsRequiredTargets(t *testing.T) {
	s, me, them := scoringFixture(t)
	card := s.CreateEntity()
	card.Attach(&ecs.ActionsComponent{Actions: []*ecs.Action{{
		Name:       "attack",
		Owner:      card,
		Controller: me,
		Targets: []ecs.TargetSet{{
			Min: 1,
			Max: 1,
			Eligible: func(e *ecs.Entity) bool {
				return e.Has(ecs.ComponentPlayer) && e != me
			},
		}},
	}}})

	d, err := NewScoring(aggressiveScorer).Act(me)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Len(t, d.Targets, 1)
	assert.Same(t, them, d.Targets[0])
}

func TestScoringSkipsActionsWithUnmeetableTargets(t *testing.T) {
	s, me, _ := scoringFixture(t)
	card := s.CreateEntity()
	card.Attach(&ecs.ActionsComponent{Actions: []*ecs.Action{{
		Name:       "attack",
		Owner:      card,
		Controller: me,
		Targets: []ecs.TargetSet{{
			Min:      1,
			Max:      1,
			Eligible: func(e *ecs.Entity) bool { return false },
		}},
	}}})

	d, err := NewScoring(aggressiveScorer).Act(me)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestChaosStrategySafeAcrossConcurrentMatches(t *testing.T) {
	// One lobby agent's strategy instance is shared by every match that
	// seats it, and each match drives it from its own goroutine.
	strategy, err := NewStrategy("chaos")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := ecs.NewStore()
			me := s.CreateEntity().Attach(&ecs.PlayerComponent{Index: 0, Name: "me"})
			card := s.CreateEntity()
			card.Attach(&ecs.ActionsComponent{Actions: []*ecs.Action{
				{Name: "play", Owner: card, Controller: me},
				{Name: "end_turn", Owner: card, Controller: me},
			}})
			for i := 0; i < 200; i++ {
				d, err := strategy.Act(me)
				assert.NoError(t, err)
				assert.NotNil(t, d)
			}
		}()
	}
	wg.Wait()
}

func TestValidateProfilesNamesKnownScorers(t *testing.T) {
	err := ValidateProfiles([]Profile{{Name: "X", Scorer: "psychic"}})
	require.True(t, errors.Is(err, ErrUnknownScorer))
	for _, name := range ScorerNames() {
		assert.Contains(t, err.Error(), name)
	}
}

func TestLoadProfiles(t *testing.T) {
	data := []byte(`
profiles:
  - name: Brawler
    scorer: aggressive
    delay: 500ms
  - name: Pacifist
    scorer: passive
`)
	profiles, err := LoadProfiles(data)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Brawler", profiles[0].Name)
	assert.Equal(t, 500*time.Millisecond, profiles[0].Delay)
	assert.Zero(t, profiles[1].Delay)
}

func TestLoadProfilesRejectsUnknownScorer(t *testing.T) {
	_, err := LoadProfiles([]byte("profiles:\n  - name: X\n    scorer: psychic\n"))
	assert.True(t, errors.Is(err, ErrUnknownScorer))
}

func TestDefaultProfilesAreValid(t *testing.T) {
	for _, p := range DefaultProfiles() {
		strategy, err := NewStrategy(p.Scorer)
		require.NoError(t, err, "profile %q", p.Name)
		assert.NotNil(t, strategy)
	}
}

package ecs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newZoneFixture(t *testing.T) (*Store, *Entity, *Entity, *Entity) {
	t.Helper()
	s := NewStore()
	deck := NewZone(s, "deck", nil, false)
	hand := NewZone(s, "hand", nil, false)
	card := s.CreateEntity().Attach(&CardComponent{Name: "test card"})
	require.NoError(t, AddToZone(card, deck))
	return s, deck, hand, card
}

func TestMoveEntityBetweenZones(t *testing.T) {
	_, deck, hand, card := newZoneFixture(t)

	require.NoError(t, MoveEntity(card, deck, hand))

	deckZone, _ := Get[*ZoneComponent](deck, ComponentZone)
	handZone, _ := Get[*ZoneComponent](hand, ComponentZone)
	assert.False(t, deckZone.Contains(card))
	assert.True(t, handZone.Contains(card))
	assert.Same(t, hand, CurrentZone(card))
}

func TestMoveEntityPhasesSeeConsistentState(t *testing.T) {
	s, deck, hand, card := newZoneFixture(t)
	deckZone, _ := Get[*ZoneComponent](deck, ComponentZone)
	handZone, _ := Get[*ZoneComponent](hand, ComponentZone)

	s.Events().Subscribe(EventZoneChange, func(e Event, p Phase) error {
		zc := e.(ZoneChangeEvent)
		inSrc := deckZone.Contains(zc.Card)
		inDst := handZone.Contains(zc.Card)
		switch p {
		case PhasePre:
			assert.True(t, inSrc, "pre phase: card should still be in source")
			assert.False(t, inDst)
		case PhasePost:
			assert.False(t, inSrc)
			assert.True(t, inDst, "post phase: card should be in destination")
		}
		// At no phase is the card in two zones or in none.
		assert.NotEqual(t, inSrc, inDst)
		return nil
	})

	require.NoError(t, MoveEntity(card, deck, hand))
}

func TestMoveEntityPreservesTotalCount(t *testing.T) {
	s := NewStore()
	zones := []*Entity{
		NewZone(s, "deck", nil, false),
		NewZone(s, "hand", nil, false),
		NewZone(s, "battlefield", nil, true),
	}
	total := func() int {
		n := 0
		for _, ze := range zones {
			z, _ := Get[*ZoneComponent](ze, ComponentZone)
			n += z.Size()
		}
		return n
	}
	var cards []*Entity
	for i := 0; i < 6; i++ {
		c := s.CreateEntity().Attach(&CardComponent{})
		require.NoError(t, AddToZone(c, zones[0]))
		cards = append(cards, c)
	}

	moves := [][3]int{{0, 0, 1}, {1, 0, 1}, {0, 1, 2}, {2, 0, 2}, {0, 2, 1}}
	for _, m := range moves {
		require.NoError(t, MoveEntity(cards[m[0]], zones[m[1]], zones[m[2]]))
		assert.Equal(t, 6, total(), "total entity count across zones must be invariant")
	}
	for _, c := range cards {
		assert.NotNil(t, CurrentZone(c), "every card stays in exactly one zone")
	}
}

func TestMoveEntityRejectsMissingCard(t *testing.T) {
	_, deck, hand, card := newZoneFixture(t)
	require.NoError(t, MoveEntity(card, deck, hand))

	err := MoveEntity(card, deck, hand)
	assert.True(t, errors.Is(err, ErrNotInZone))
	// State unchanged by the failed move.
	assert.Same(t, hand, CurrentZone(card))
}

func TestAddToZoneEnforcesExclusivity(t *testing.T) {
	_, _, hand, card := newZoneFixture(t)
	err := AddToZone(card, hand)
	assert.True(t, errors.Is(err, ErrZoneBusy))
}

func TestVetoedMoveLeavesZonesUntouched(t *testing.T) {
	s, deck, hand, card := newZoneFixture(t)
	s.Events().Subscribe(EventZoneChange, func(e Event, p Phase) error {
		if p == PhasePre {
			return Veto("frozen")
		}
		return nil
	})

	err := MoveEntity(card, deck, hand)
	assert.True(t, IsVeto(err))
	assert.Same(t, deck, CurrentZone(card))
}

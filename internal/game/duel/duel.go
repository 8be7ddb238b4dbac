// Package duel is the built-in rule pack: two players, a deck, a hand and a
// battlefield each. Creatures are played from hand and attack the opposing
// player directly; running out of cards bleeds health, so every match
// terminates.
package duel

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/deckforge/deckforge/internal/core/ecs"
	"github.com/deckforge/deckforge/internal/game"
)

const ModName = "duel"

const (
	AttrHealth = "health"
	AttrAttack = "attack"
	AttrReady  = "ready"
)

const (
	startingHealth = 10
	deckSize       = 10
	openingHand    = 3
)

// Register adds the duel mod to a registry.
func Register(r *game.Registry) {
	r.Register(ModName, func() game.Ruleset { return New() })
}

var _ game.Ruleset = (*Duel)(nil)

// Duel holds the per-match rule state: seat order, each seat's zones and the
// active seat index.
type Duel struct {
	players []*ecs.Entity
	decks   []*ecs.Entity
	hands   []*ecs.Entity
	fields  []*ecs.Entity
	active  int
}

func New() *Duel {
	return &Duel{}
}

func (d *Duel) Name() string { return ModName }

func (d *Duel) Setup(store *ecs.Store, players []*ecs.Entity) error {
	if len(players) != 2 {
		return errors.Errorf("duel needs exactly 2 players, got %d", len(players))
	}
	d.players = players
	for seat, p := range players {
		if err := ecs.SetAttribute(p, AttrHealth, startingHealth); err != nil {
			return err
		}
		deck := ecs.NewZone(store, "deck", p, false)
		hand := ecs.NewZone(store, "hand", p, false)
		field := ecs.NewZone(store, "battlefield", p, true)
		d.decks = append(d.decks, deck)
		d.hands = append(d.hands, hand)
		d.fields = append(d.fields, field)

		for i := 0; i < deckSize; i++ {
			card, err := d.newCard(store, seat, i)
			if err != nil {
				return err
			}
			if err := ecs.AddToZone(card, deck); err != nil {
				return err
			}
		}
		for i := 0; i < openingHand; i++ {
			if err := d.draw(seat); err != nil {
				return err
			}
		}
		if err := d.attachEndTurn(p, seat); err != nil {
			return err
		}
	}
	d.active = 0
	return store.Events().Execute(ecs.GameStartEvent{}, nil)
}

func (d *Duel) newCard(store *ecs.Store, seat, ordinal int) (*ecs.Entity, error) {
	p := d.players[seat]
	attack := 1 + ordinal%3
	card := store.CreateEntity()
	card.Attach(&ecs.CardComponent{
		Name:  fmt.Sprintf("Recruit %d/%d", attack, attack),
		Owner: p,
	})
	if err := ecs.SetAttribute(card, AttrAttack, attack); err != nil {
		return nil, err
	}

	play := &ecs.Action{
		Name:       "play",
		Owner:      card,
		Controller: p,
		Allowed: func(a *ecs.Action) bool {
			return d.isActive(seat) && d.zone(d.hands[seat]).Contains(card)
		},
		Perform: func(a *ecs.Action, targets []*ecs.Entity) error {
			if err := ecs.MoveEntity(card, d.hands[seat], d.fields[seat]); err != nil {
				return err
			}
			// Summoning sickness: the card attacks from the next turn on.
			return ecs.SetAttribute(card, AttrReady, 0)
		},
	}
	attackAction := &ecs.Action{
		Name:       "attack",
		Owner:      card,
		Controller: p,
		Allowed: func(a *ecs.Action) bool {
			return d.isActive(seat) &&
				d.zone(d.fields[seat]).Contains(card) &&
				ecs.Attribute(card, AttrReady) == 1
		},
		Targets: []ecs.TargetSet{{
			Min: 1,
			Max: 1,
			Eligible: func(e *ecs.Entity) bool {
				return e.Has(ecs.ComponentPlayer) && e != p
			},
		}},
		Perform: func(a *ecs.Action, targets []*ecs.Entity) error {
			target := targets[0]
			dmg := ecs.Attribute(card, AttrAttack)
			if err := ecs.SetAttribute(target, AttrHealth, ecs.Attribute(target, AttrHealth)-dmg); err != nil {
				return err
			}
			return ecs.SetAttribute(card, AttrReady, 0)
		},
	}
	card.Attach(&ecs.ActionsComponent{Actions: []*ecs.Action{play, attackAction}})
	return card, nil
}

func (d *Duel) attachEndTurn(p *ecs.Entity, seat int) error {
	endTurn := &ecs.Action{
		Name:       "end_turn",
		Owner:      p,
		Controller: p,
		Allowed: func(a *ecs.Action) bool {
			return d.isActive(seat)
		},
		Perform: func(a *ecs.Action, targets []*ecs.Entity) error {
			return d.passTurn(seat)
		},
	}
	p.Attach(&ecs.ActionsComponent{Actions: []*ecs.Action{endTurn}})
	return nil
}

// passTurn hands the turn to the other seat: that player draws (or bleeds a
// point of fatigue from an empty deck) and their battlefield readies.
func (d *Duel) passTurn(seat int) error {
	next := 1 - seat
	from, to := d.players[seat], d.players[next]
	store := from.Store()
	return store.Events().Execute(ecs.TurnChangeEvent{From: from, To: to}, func() {
		d.active = next
		if _, ok := d.zone(d.decks[next]).Top(); ok {
			_ = d.draw(next)
		} else {
			// Fatigue keeps stalled matches finite.
			_ = ecs.SetAttribute(to, AttrHealth, ecs.Attribute(to, AttrHealth)-1)
		}
		for _, card := range d.zone(d.fields[next]).Cards() {
			_ = ecs.SetAttribute(card, AttrReady, 1)
		}
	})
}

func (d *Duel) draw(seat int) error {
	top, ok := d.zone(d.decks[seat]).Top()
	if !ok {
		return nil
	}
	return ecs.MoveEntity(top, d.decks[seat], d.hands[seat])
}

func (d *Duel) OnActionResolved(store *ecs.Store, action *ecs.Action) bool {
	for _, p := range d.players {
		if ecs.Attribute(p, AttrHealth) <= 0 {
			return true
		}
	}
	return false
}

func (d *Duel) isActive(seat int) bool {
	return d.active == seat
}

func (d *Duel) zone(e *ecs.Entity) *ecs.ZoneComponent {
	z, _ := ecs.Get[*ecs.ZoneComponent](e, ecs.ComponentZone)
	return z
}

package ecs

import (
	"github.com/pkg/errors"
)

var (
	ErrNotAZone   = errors.New("entity is not a zone")
	ErrNotInZone  = errors.New("entity is not in the source zone")
	ErrZoneBusy   = errors.New("entity is already in another zone")
	ErrZoneClosed = errors.New("zone does not accept entities")
)

var _ Component = (*ZoneComponent)(nil)

// ZoneComponent turns an entity into an ordered container of other entities.
// Owner is nil for shared zones. Known marks the zone contents as public to
// every participant; hidden zones reveal only their size.
type ZoneComponent struct {
	Name  string
	Owner *Entity
	Known bool
	cards []*Entity
}

func (*ZoneComponent) ComponentType() ComponentType { return ComponentZone }

// NewZone creates a zone entity in the store.
func NewZone(s *Store, name string, owner *Entity, known bool) *Entity {
	e := s.CreateEntity()
	e.Attach(&ZoneComponent{Name: name, Owner: owner, Known: known})
	return e
}

// Cards returns the ordered contents as a snapshot.
func (z *ZoneComponent) Cards() []*Entity {
	out := make([]*Entity, len(z.cards))
	copy(out, z.cards)
	return out
}

func (z *ZoneComponent) Size() int {
	return len(z.cards)
}

func (z *ZoneComponent) Contains(e *Entity) bool {
	for _, c := range z.cards {
		if c == e {
			return true
		}
	}
	return false
}

// Top returns the last entity of the zone, the conventional "top of deck".
func (z *ZoneComponent) Top() (*Entity, bool) {
	if len(z.cards) == 0 {
		return nil, false
	}
	return z.cards[len(z.cards)-1], true
}

func (z *ZoneComponent) add(e *Entity) {
	z.cards = append(z.cards, e)
}

func (z *ZoneComponent) remove(e *Entity) bool {
	for i, c := range z.cards {
		if c == e {
			z.cards = append(z.cards[:i], z.cards[i+1:]...)
			return true
		}
	}
	return false
}

// CurrentZone finds the zone currently holding an entity, nil when it is in
// no zone.
func CurrentZone(card *Entity) *Entity {
	for _, e := range card.store.EntitiesWith(ComponentZone) {
		z, _ := Get[*ZoneComponent](e, ComponentZone)
		if z.Contains(card) {
			return e
		}
	}
	return nil
}

// AddToZone places an entity into a zone outside of any event, for initial
// population during match setup. The exclusivity invariant still holds: an
// entity already held by some zone is rejected.
func AddToZone(card, zone *Entity) error {
	z, ok := Get[*ZoneComponent](zone, ComponentZone)
	if !ok {
		return errors.Wrapf(ErrNotAZone, "entity %d", zone.ID())
	}
	if cur := CurrentZone(card); cur != nil {
		return errors.Wrapf(ErrZoneBusy, "entity %d in zone %d", card.ID(), cur.ID())
	}
	z.add(card)
	return nil
}

// MoveEntity removes card from the source zone and appends it to the
// destination zone as one event: pre-phase observers still see it in the
// source, post-phase observers see it in the destination, and no observer
// ever sees it in both or in neither.
func MoveEntity(card, from, to *Entity) error {
	src, ok := Get[*ZoneComponent](from, ComponentZone)
	if !ok {
		return errors.Wrapf(ErrNotAZone, "source entity %d", from.ID())
	}
	dst, ok := Get[*ZoneComponent](to, ComponentZone)
	if !ok {
		return errors.Wrapf(ErrNotAZone, "destination entity %d", to.ID())
	}
	if !src.Contains(card) {
		return errors.Wrapf(ErrNotInZone, "entity %d, zone %d", card.ID(), from.ID())
	}
	ev := ZoneChangeEvent{Card: card, Source: from, Destination: to}
	return card.store.Events().Execute(ev, func() {
		src.remove(card)
		dst.add(card)
	})
}

package ecs

import (
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
)

// Store owns all entities and their attached components for one match.
//
// A store performs no locking of its own: all mutation must go through the
// single serialization point of the owning match (one lock or one goroutine).
type Store struct {
	nextID   EntityID
	entities map[EntityID]*Entity
	events   *EventChannel
}

func NewStore() *Store {
	return &Store{
		entities: make(map[EntityID]*Entity),
		events:   NewEventChannel(),
	}
}

// CreateEntity allocates the next unique id and registers a fresh entity.
func (s *Store) CreateEntity() *Entity {
	e := &Entity{
		id:         s.nextID,
		store:      s,
		components: make(map[ComponentType]Component),
	}
	s.nextID++
	s.entities[e.id] = e
	return e
}

// Entity looks up an entity by id. Unknown ids are a caller bug during
// correct operation and fail with ErrEntityNotFound.
func (s *Store) Entity(id EntityID) (*Entity, error) {
	e, ok := s.entities[id]
	if !ok {
		return nil, errors.Wrapf(ErrEntityNotFound, "id %d", id)
	}
	return e, nil
}

// RemoveEntity deletes an entity from the store. Entities are destroyed only
// by explicit removal; there is no implicit garbage collection.
func (s *Store) RemoveEntity(id EntityID) error {
	if _, ok := s.entities[id]; !ok {
		return errors.Wrapf(ErrEntityNotFound, "id %d", id)
	}
	delete(s.entities, id)
	return nil
}

// EntitiesWith returns a snapshot of all entities carrying a component of the
// given type, ordered by id. The slice is not a live view.
func (s *Store) EntitiesWith(t ComponentType) []*Entity {
	var out []*Entity
	for _, e := range s.entities {
		if e.Has(t) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Entities returns an id-ordered snapshot of every entity in the store.
func (s *Store) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Len returns the number of registered entities.
func (s *Store) Len() int {
	return len(s.entities)
}

// Events returns the event channel every state change of this store runs
// through.
func (s *Store) Events() *EventChannel {
	return s.events
}

package ecs

// EntityID identifies an entity within a single store. IDs are monotonically
// increasing and never reused for the lifetime of the store.
type EntityID int

// ComponentType tags the kind of data a component carries. The set is open:
// any package may define its own component types.
type ComponentType string

const (
	ComponentPlayer     ComponentType = "player"
	ComponentCard       ComponentType = "card"
	ComponentZone       ComponentType = "zone"
	ComponentActions    ComponentType = "actions"
	ComponentAttributes ComponentType = "attributes"
)

// Component is a typed record attached to at most one slot per type on an
// entity. The store never inspects component internals, only type identity.
type Component interface {
	ComponentType() ComponentType
}

// Entity is an identity-only handle to a bag of components within one store.
type Entity struct {
	id         EntityID
	store      *Store
	components map[ComponentType]Component
}

func (e *Entity) ID() EntityID {
	return e.id
}

func (e *Entity) Store() *Store {
	return e.store
}

// Attach adds a component to the entity, replacing any existing component of
// the same type.
func (e *Entity) Attach(c Component) *Entity {
	e.components[c.ComponentType()] = c
	return e
}

// Detach removes the component of the given type, if present.
func (e *Entity) Detach(t ComponentType) {
	delete(e.components, t)
}

// Component returns the component of the given type.
func (e *Entity) Component(t ComponentType) (Component, bool) {
	c, ok := e.components[t]
	return c, ok
}

// Has reports whether a component of the given type is attached.
func (e *Entity) Has(t ComponentType) bool {
	_, ok := e.components[t]
	return ok
}

// Get returns the component of type t on e, asserted to the concrete type T.
func Get[T Component](e *Entity, t ComponentType) (T, bool) {
	var zero T
	c, ok := e.components[t]
	if !ok {
		return zero, false
	}
	v, ok := c.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

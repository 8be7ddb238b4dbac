package ecs

var (
	_ Component = (*PlayerComponent)(nil)
	_ Component = (*CardComponent)(nil)
	_ Component = (*AttributesComponent)(nil)
)

// PlayerComponent marks an entity as a seated participant.
type PlayerComponent struct {
	Index int
	Name  string
}

func (*PlayerComponent) ComponentType() ComponentType { return ComponentPlayer }

// CardComponent marks an entity as a card and records its owning player.
type CardComponent struct {
	Name  string
	Owner *Entity
}

func (*CardComponent) ComponentType() ComponentType { return ComponentCard }

// AttributesComponent holds the named numeric attributes of an entity
// (health, attack and the like). Mutate through SetAttribute so observers
// see every change.
type AttributesComponent struct {
	values map[string]int
}

func NewAttributes() *AttributesComponent {
	return &AttributesComponent{values: make(map[string]int)}
}

func (*AttributesComponent) ComponentType() ComponentType { return ComponentAttributes }

func (a *AttributesComponent) Get(key string) (int, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Values returns a copy of the attribute map.
func (a *AttributesComponent) Values() map[string]int {
	out := make(map[string]int, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Attribute reads a named attribute off an entity, zero when absent.
func Attribute(e *Entity, key string) int {
	attrs, ok := Get[*AttributesComponent](e, ComponentAttributes)
	if !ok {
		return 0
	}
	v, _ := attrs.Get(key)
	return v
}

// SetAttribute changes one attribute as a single observable event. The
// attributes component is attached on first use.
func SetAttribute(e *Entity, key string, value int) error {
	attrs, ok := Get[*AttributesComponent](e, ComponentAttributes)
	if !ok {
		attrs = NewAttributes()
		e.Attach(attrs)
	}
	old, _ := attrs.Get(key)
	if old == value {
		return nil
	}
	return e.store.Events().Execute(AttributeChangeEvent{Target: e, Key: key, From: old, To: value}, func() {
		attrs.values[key] = value
	})
}

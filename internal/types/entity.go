package types

import "time"

// Metadata tracks entity bookkeeping maintained by the kernel
type Metadata struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// Entity represents one unit of persisted game state: a character, an item,
// a spell list. Properties is an open string-keyed map of typed values.
type Entity struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Name       string           `json:"name"`
	Properties map[string]Value `json:"properties"`
	Metadata   Metadata         `json:"metadata"`
}

// NewEntity creates an entity with an empty property map
func NewEntity(id, entityType, name string) *Entity {
	return &Entity{
		ID:         id,
		Type:       entityType,
		Name:       name,
		Properties: make(map[string]Value),
	}
}

// Clone returns a deep copy. The kernel hands out clones on read so callers
// can never alias store-owned state.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	props := make(map[string]Value, len(e.Properties))
	for k, v := range e.Properties {
		props[k] = v.Clone()
	}
	clone := *e
	clone.Properties = props
	return &clone
}

// Prop returns a top-level property
func (e *Entity) Prop(key string) (Value, bool) {
	v, ok := e.Properties[key]
	return v, ok
}

// SetProp sets a top-level property
func (e *Entity) SetProp(key string, v Value) {
	if e.Properties == nil {
		e.Properties = make(map[string]Value)
	}
	e.Properties[key] = v
}

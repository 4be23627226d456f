package record

import (
	"fmt"

	"github.com/google/uuid"
)

// Builder accumulates attribute insertions for an outgoing create or
// update operation. Each attribute name may be inserted exactly once; an
// explicit nil insertion expresses "clear this field" to the destination.
type Builder struct {
	kind   string
	id     uuid.UUID
	update bool
	fields map[string]any
}

// NewCreate constructs a builder in create shape: kind only, no identifier.
func NewCreate(kind string) *Builder {
	return &Builder{
		kind:   kind,
		fields: make(map[string]any),
	}
}

// NewUpdate constructs a builder in update shape, carrying the identifier
// of the record to patch.
func NewUpdate(kind string, id uuid.UUID) *Builder {
	return &Builder{
		kind:   kind,
		id:     id,
		update: true,
		fields: make(map[string]any),
	}
}

// Kind returns the destination kind.
func (b *Builder) Kind() string {
	return b.kind
}

// RecordID returns the target identifier and whether the builder is in
// update shape.
func (b *Builder) RecordID() (uuid.UUID, bool) {
	return b.id, b.update
}

// Set inserts an attribute value. Inserting the same name twice is an
// error; the first insertion wins.
func (b *Builder) Set(name string, value any) error {
	if _, exists := b.fields[name]; exists {
		return fmt.Errorf("record: field %q already set", name)
	}
	b.fields[name] = value
	return nil
}

// Get returns the inserted value for name. A present name with a nil
// value is distinguishable from an absent name.
func (b *Builder) Get(name string) (any, bool) {
	v, ok := b.fields[name]
	return v, ok
}

// Has reports whether the name has been inserted.
func (b *Builder) Has(name string) bool {
	_, ok := b.fields[name]
	return ok
}

// Len returns the number of inserted attributes.
func (b *Builder) Len() int {
	return len(b.fields)
}

// Entity materializes the builder into an Entity holding the inserted
// attributes.
func (b *Builder) Entity() *Entity {
	e := NewEntity(b.kind, b.id)
	for name, value := range b.fields {
		e.Set(name, value)
	}
	return e
}

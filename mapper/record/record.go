package record

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source is the read-side contract a mappable record must satisfy. Values
// returned by Get are either plain Go primitives or one of the Composite
// wrapper shapes defined in this package.
type Source interface {
	Kind() string
	ID() uuid.UUID
	Contains(name string) bool
	Get(name string) (any, bool)
	FormattedLabel(name string) (string, bool)
}

// Composite is the closed set of wrapper shapes a record attribute may
// carry. The marker method seals the set: the conversion engine switches
// exhaustively over these five variants, and adding a new one forces a
// review of every switch.
type Composite interface {
	composite()
}

// Reference points at another record of the given kind.
type Reference struct {
	Kind string
	ID   uuid.UUID
	Name string
}

// Choice holds the integer code of a single-select option.
type Choice struct {
	Code int
}

// Currency holds a monetary amount.
type Currency struct {
	Amount decimal.Decimal
}

// MultiChoice holds the integer codes of a multi-select option.
type MultiChoice struct {
	Codes []int
}

// Aliased wraps a value surfaced under a namespaced alias, typically a
// column projected from a linked record.
type Aliased struct {
	Tag   string
	Value any
}

func (Reference) composite()   {}
func (Choice) composite()      {}
func (Currency) composite()    {}
func (MultiChoice) composite() {}
func (Aliased) composite()     {}

// Entity is an in-memory Source implementation: an attribute bag plus a
// parallel side-table of formatted labels.
type Entity struct {
	kind       string
	id         uuid.UUID
	attributes map[string]any
	labels     map[string]string
}

// NewEntity constructs an empty entity of the given kind.
func NewEntity(kind string, id uuid.UUID) *Entity {
	return &Entity{
		kind:       kind,
		id:         id,
		attributes: make(map[string]any),
		labels:     make(map[string]string),
	}
}

// Kind returns the entity's logical kind, e.g. "contact".
func (e *Entity) Kind() string {
	return e.kind
}

// ID returns the entity's identifier; zero when the entity is unsaved.
func (e *Entity) ID() uuid.UUID {
	return e.id
}

// Contains reports whether the named attribute is present, even with a
// nil value.
func (e *Entity) Contains(name string) bool {
	_, ok := e.attributes[name]
	return ok
}

// Get returns the named attribute value.
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.attributes[name]
	return v, ok
}

// Set stores an attribute value, replacing any previous one.
func (e *Entity) Set(name string, value any) *Entity {
	e.attributes[name] = value
	return e
}

// SetLabel stores the formatted label for an attribute.
func (e *Entity) SetLabel(name, label string) *Entity {
	e.labels[name] = label
	return e
}

// FormattedLabel returns the display label recorded for the named
// attribute, independent of whether the attribute itself is present.
func (e *Entity) FormattedLabel(name string) (string, bool) {
	l, ok := e.labels[name]
	return l, ok
}

// Len returns the number of attributes.
func (e *Entity) Len() int {
	return len(e.attributes)
}

// Collection groups entities of one kind.
type Collection struct {
	Kind    string
	Records []*Entity
}

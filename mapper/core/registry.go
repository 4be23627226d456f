package core

import (
	"errors"
	"reflect"
	"sync"
)

// ErrNotStruct indicates the provided value or type is not a struct.
var ErrNotStruct = errors.New("core: target is not a struct")

// Binding joins one struct field with its parsed mapping rule. Shape
// information is resolved once at build time so the mapping hot path does
// no tag parsing.
type Binding struct {
	Property  string
	Index     []int
	Type      reflect.Type
	Base      reflect.Type // Type with pointer indirection removed
	IsPointer bool
	Rule      Rule
}

// Registry memoizes per-type binding tables. Construct one per
// application context and share it by reference; building is a pure
// function of the type, so concurrent duplicate builds are safe and a
// racing duplicate is simply discarded. Entries live for the life of the
// registry.
type Registry struct {
	bindings sync.Map // map[reflect.Type][]Binding
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Bindings returns the binding table for the provided struct instance or
// type, building and caching it on first use.
func (r *Registry) Bindings(target any) ([]Binding, error) {
	t, err := normalizeToStructType(target)
	if err != nil {
		return nil, err
	}

	if cached, ok := r.bindings.Load(t); ok {
		return cached.([]Binding), nil
	}

	built, err := buildBindings(t)
	if err != nil {
		return nil, err
	}

	actual, _ := r.bindings.LoadOrStore(t, built)
	return actual.([]Binding), nil
}

// Size returns the number of cached binding tables.
func (r *Registry) Size() int {
	n := 0
	r.bindings.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func buildBindings(t reflect.Type) ([]Binding, error) {
	if t.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}

	bindings := make([]Binding, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			// Unexported, skip.
			continue
		}

		rule, ok, err := parseRule(field)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		base := field.Type
		isPointer := base.Kind() == reflect.Pointer
		for base.Kind() == reflect.Pointer {
			base = base.Elem()
		}

		bindings = append(bindings, Binding{
			Property:  field.Name,
			Index:     field.Index,
			Type:      field.Type,
			Base:      base,
			IsPointer: isPointer,
			Rule:      rule,
		})
	}

	return bindings, nil
}

func normalizeToStructType(target any) (reflect.Type, error) {
	if target == nil {
		return nil, ErrNotStruct
	}

	var t reflect.Type
	switch val := target.(type) {
	case reflect.Type:
		t = val
	default:
		t = reflect.TypeOf(target)
	}

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}

	return t, nil
}

package core

import (
	"errors"
	"log"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/entitymap/entitymap/mapper/record"
)

var (
	// ErrNilInstance occurs when the write path receives a nil instance.
	ErrNilInstance = errors.New("core: instance must be a non-nil pointer to a struct")
	// ErrBlankKind occurs when the write path receives a blank destination kind.
	ErrBlankKind = errors.New("core: kind must not be blank")
	// ErrNilTarget occurs when a caller provides a nil pointer or non-struct to MapInto.
	ErrNilTarget = errors.New("core: target must be a non-nil pointer to a struct")
)

// Mapper translates between attribute-bag records and annotated structs.
// A Mapper is safe for concurrent use; each call operates on caller-owned
// values and retains no references afterward.
type Mapper struct {
	registry *Registry
	logger   Logger
}

// Option configures mapper-level behavior.
type Option func(*mapperConfig)

type mapperConfig struct {
	registry *Registry
	logger   Logger
}

// WithRegistry shares an existing binding registry between mappers.
func WithRegistry(registry *Registry) Option {
	return func(cfg *mapperConfig) {
		cfg.registry = registry
	}
}

// WithLogger sets the logger used to echo diagnostics.
func WithLogger(logger Logger) Option {
	return func(cfg *mapperConfig) {
		cfg.logger = logger
	}
}

// New constructs a Mapper with its own registry unless one is provided.
func New(opts ...Option) *Mapper {
	cfg := mapperConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := cfg.registry
	if registry == nil {
		registry = NewRegistry()
	}
	logger := cfg.logger
	if logger == nil {
		logger = log.Default()
	}

	return &Mapper{
		registry: registry,
		logger:   logger,
	}
}

// Registry exposes the mapper's binding registry, e.g. for sharing with
// a mapped-entity cache.
func (m *Mapper) Registry() *Registry {
	return m.registry
}

// MapOne maps a single source record into a freshly constructed T. A nil
// record yields a nil result, not an error; per-field problems accumulate
// as diagnostics while the remaining fields still map. The error is
// non-nil only for malformed mapping tags on T.
func MapOne[T any](m *Mapper, src record.Source) (*T, Diagnostics, error) {
	if isNilSource(src) {
		return nil, nil, nil
	}

	target := new(T)
	diags, err := m.MapInto(src, target)
	if err != nil {
		return nil, diags, err
	}
	return target, diags, nil
}

// MapMany maps every record of a collection. A nil or empty collection
// yields an empty, non-nil slice.
func MapMany[T any](m *Mapper, coll *record.Collection) ([]*T, Diagnostics, error) {
	out := make([]*T, 0)
	if coll == nil {
		return out, nil, nil
	}

	var diags Diagnostics
	for _, rec := range coll.Records {
		mapped, recDiags, err := MapOne[T](m, rec)
		diags = append(diags, recDiags...)
		if err != nil {
			return out, diags, err
		}
		if mapped != nil {
			out = append(out, mapped)
		}
	}
	return out, diags, nil
}

// MapInto populates target, a non-nil struct pointer, from src. Partial
// success is the normal outcome: each per-field conversion or assignment
// failure is recorded and mapping continues with the next field.
func (m *Mapper) MapInto(src record.Source, target any) (Diagnostics, error) {
	value, err := ensureStructPointer(target)
	if err != nil {
		return nil, err
	}
	if isNilSource(src) {
		return nil, nil
	}

	bindings, err := m.registry.Bindings(target)
	if err != nil {
		return nil, err
	}

	recordID := ""
	if src.ID() != uuid.Nil {
		recordID = src.ID().String()
	}

	elem := value.Elem()
	var diags Diagnostics
	for _, b := range bindings {
		raw := fetchRaw(src, b)

		out, convErr := convertRead(raw, b)
		if convErr != nil {
			diags = m.report(diags, Diagnostic{
				Property: b.Property,
				Field:    b.Rule.Field,
				RecordID: recordID,
				Message:  "read conversion degraded",
				Err:      convErr,
			})
		}
		if out == nil {
			continue
		}

		if err := assign(elem.FieldByIndex(b.Index), b, out); err != nil {
			diags = m.report(diags, Diagnostic{
				Property: b.Property,
				Field:    b.Rule.Field,
				RecordID: recordID,
				Message:  "assignment failed",
				Err:      err,
			})
		}
	}

	return diags, nil
}

// fetchRaw resolves a binding's raw value. An absent field is nil with no
// label lookup; a label binding consults only the side-table, whose
// absence is nil even when the field itself exists; an aliased wrapper is
// unwrapped unconditionally.
func fetchRaw(src record.Source, b Binding) any {
	raw, ok := src.Get(b.Rule.Field)
	if !ok {
		return nil
	}

	if b.Rule.Part == PartLabel {
		label, ok := src.FormattedLabel(b.Rule.Field)
		if !ok {
			return nil
		}
		return label
	}

	if aliased, isAliased := raw.(record.Aliased); isAliased {
		raw = aliased.Value
	}
	return raw
}

// RecordOption customizes a single MapToRecord call.
type RecordOption func(*recordConfig)

type recordConfig struct {
	id           uuid.UUID
	includeNulls bool
}

// WithRecordID puts the builder in update shape, carrying the identifier
// of the record to patch. A zero identifier leaves the builder in create
// shape.
func WithRecordID(id uuid.UUID) RecordOption {
	return func(cfg *recordConfig) {
		cfg.id = id
	}
}

// WithNulls includes nil-valued properties as explicit null insertions,
// the destination's way of clearing a field.
func WithNulls() RecordOption {
	return func(cfg *recordConfig) {
		cfg.includeNulls = true
	}
}

// MapToRecord builds an outgoing record from the annotated instance.
// Nil-valued properties are omitted entirely unless WithNulls is given.
// Per-field conversion problems accumulate as diagnostics and skip only
// the offending field.
func (m *Mapper) MapToRecord(instance any, kind string, opts ...RecordOption) (*record.Builder, Diagnostics, error) {
	value := reflect.ValueOf(instance)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, ErrNilInstance
		}
		value = value.Elem()
	}
	if !value.IsValid() || value.Kind() != reflect.Struct {
		return nil, nil, ErrNilInstance
	}
	if strings.TrimSpace(kind) == "" {
		return nil, nil, ErrBlankKind
	}

	cfg := recordConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	bindings, err := m.registry.Bindings(value.Type())
	if err != nil {
		return nil, nil, err
	}

	var builder *record.Builder
	recordID := ""
	if cfg.id != uuid.Nil {
		builder = record.NewUpdate(kind, cfg.id)
		recordID = cfg.id.String()
	} else {
		builder = record.NewCreate(kind)
	}

	var diags Diagnostics
	for _, b := range bindings {
		propVal, isNil := unwrapProperty(value.FieldByIndex(b.Index))
		if isNil {
			if !cfg.includeNulls {
				continue
			}
			if err := builder.Set(b.Rule.Field, nil); err != nil {
				diags = m.report(diags, Diagnostic{
					Property: b.Property,
					Field:    b.Rule.Field,
					RecordID: recordID,
					Message:  "insert failed",
					Err:      err,
				})
			}
			continue
		}

		out, convErr := convertWrite(propVal, b)
		if convErr != nil {
			diags = m.report(diags, Diagnostic{
				Property: b.Property,
				Field:    b.Rule.Field,
				RecordID: recordID,
				Message:  "write conversion degraded",
				Err:      convErr,
			})
			if out == nil {
				continue
			}
		}
		if out == nil && !cfg.includeNulls {
			continue
		}

		if err := builder.Set(b.Rule.Field, out); err != nil {
			diags = m.report(diags, Diagnostic{
				Property: b.Property,
				Field:    b.Rule.Field,
				RecordID: recordID,
				Message:  "insert failed",
				Err:      err,
			})
		}
	}

	return builder, diags, nil
}

func (m *Mapper) report(diags Diagnostics, d Diagnostic) Diagnostics {
	m.logger.Printf("core: %s", d)
	return append(diags, d)
}

func ensureStructPointer(obj any) (reflect.Value, error) {
	if obj == nil {
		return reflect.Value{}, ErrNilTarget
	}

	val := reflect.ValueOf(obj)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		return reflect.Value{}, ErrNilTarget
	}
	if val.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, ErrNilTarget
	}

	return val, nil
}

// unwrapProperty dereferences a property value and reports whether it is
// null: a nil pointer, interface, or slice.
func unwrapProperty(field reflect.Value) (any, bool) {
	v := field
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, true
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice && v.IsNil() {
		return nil, true
	}
	return v.Interface(), false
}

func isNilSource(src record.Source) bool {
	if src == nil {
		return true
	}
	v := reflect.ValueOf(src)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/entitymap/entitymap/mapper/core"
)

// JSONSerializer serializes a mapped struct's bound fields into canonical
// JSON: flat, keys sorted, keyed by entity field name. Bindings with a
// non-default extraction part are disambiguated with an "@part" suffix
// ("statuscode@value", "statuscode@label") so sibling bindings of one
// record field never collide.
type JSONSerializer struct{}

// NewJSONSerializer constructs a JSON serializer instance.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Format returns the format identifier for this serializer.
func (s *JSONSerializer) Format() string {
	return FormatJSON
}

// Serialize converts the instance's bound fields into canonical JSON.
func (s *JSONSerializer) Serialize(bindings []core.Binding, value any) (Payload, error) {
	if value == nil {
		return Payload{}, errors.New("cache: cannot serialize nil value")
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Payload{}, errors.New("cache: cannot serialize nil value")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return Payload{}, core.ErrNotStruct
	}

	object := make(map[string]any, len(bindings))
	for _, b := range bindings {
		field := rv.FieldByIndex(b.Index)
		if b.IsPointer {
			if field.IsNil() {
				object[payloadKey(b)] = nil
				continue
			}
			field = field.Elem()
		}
		object[payloadKey(b)] = field.Interface()
	}

	data, err := marshalCanonical(object)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Format: FormatJSON,
		Data:   data,
	}, nil
}

// Deserialize populates out, a struct pointer, from the payload. Absent
// keys leave the field untouched; explicit nulls zero it.
func (s *JSONSerializer) Deserialize(bindings []core.Binding, payload Payload, out any) error {
	if payload.Format != "" && payload.Format != FormatJSON {
		return fmt.Errorf("cache: unsupported format %q for JSON serializer", payload.Format)
	}
	if out == nil {
		return errors.New("cache: output target is nil")
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("cache: Deserialize target must be a non-nil pointer")
	}
	target := rv.Elem()
	if target.Kind() != reflect.Struct {
		return core.ErrNotStruct
	}

	var raw map[string]json.RawMessage
	if len(payload.Data) == 0 {
		raw = map[string]json.RawMessage{}
	} else {
		if err := json.Unmarshal(payload.Data, &raw); err != nil {
			return err
		}
	}

	for _, b := range bindings {
		rawValue, ok := raw[payloadKey(b)]
		if !ok {
			continue
		}

		field := target.FieldByIndex(b.Index)
		if !field.CanSet() {
			continue
		}

		if isJSONNull(rawValue) {
			field.Set(reflect.Zero(field.Type()))
			continue
		}

		tmp := reflect.New(b.Base)
		if err := json.Unmarshal(rawValue, tmp.Interface()); err != nil {
			return fmt.Errorf("cache: field %s: %w", payloadKey(b), err)
		}

		if b.IsPointer {
			if !tmp.Type().AssignableTo(field.Type()) {
				return fmt.Errorf("cache: unsupported pointer depth on %s", b.Property)
			}
			field.Set(tmp)
		} else {
			field.Set(tmp.Elem())
		}
	}

	return nil
}

func payloadKey(b core.Binding) string {
	if b.Rule.Part == core.PartDefault {
		return b.Rule.Field
	}
	return b.Rule.Field + "@" + b.Rule.Part.String()
}

func marshalCanonical(object map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Grow(len(keys) * 32) // heuristic
	buf.WriteByte('{')
	for idx, key := range keys {
		if idx > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valueBytes, err := json.Marshal(object[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

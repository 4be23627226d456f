package core

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	safecast "github.com/ccoveille/go-safecast"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/entitymap/entitymap/mapper/record"
)

// roundTripLayout renders dates the way the destination round-trips them:
// seven fractional digits and a UTC designator.
const roundTripLayout = "2006-01-02T15:04:05.0000000Z"

var (
	timeType      = reflect.TypeOf(time.Time{})
	uuidType      = reflect.TypeOf(uuid.UUID{})
	decimalType   = reflect.TypeOf(decimal.Decimal{})
	byteSliceType = reflect.TypeOf([]byte(nil))

	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isIntegerShape(t reflect.Type) bool {
	return isIntegerKind(t.Kind())
}

// isEnumShape reports whether t is a named integer type, the shape used
// for option-set style enumerations.
func isEnumShape(t reflect.Type) bool {
	return isIntegerKind(t.Kind()) && t.PkgPath() != ""
}

func isIntListShape(t reflect.Type) bool {
	if t.Kind() != reflect.Slice {
		return false
	}
	elem := t.Elem().Kind()
	return elem != reflect.Uint8 && isIntegerKind(elem)
}

// convertRead turns a raw attribute value into something assignable to
// the bound field. A nil result means the assignment is skipped; a
// non-nil error is a non-fatal degrade the caller records as a
// diagnostic. Both may be returned together: enumeration degrades yield
// the zero member alongside the diagnostic.
func convertRead(raw any, b Binding) (any, error) {
	if raw == nil {
		return nil, nil
	}

	// Dates become text by rendering, never by generic conversion.
	if t, ok := raw.(time.Time); ok && b.Base.Kind() == reflect.String {
		return renderTime(t, b.Rule.Format, b.Base)
	}

	switch v := raw.(type) {
	case record.Aliased:
		return convertRead(v.Value, b)
	case record.Reference:
		return convertReference(v, b)
	case record.Choice:
		return convertChoice(v, b)
	case record.Currency:
		return convertCurrency(v, b)
	case record.MultiChoice:
		return convertMultiChoice(v, b)
	}

	return coercePrimitive(raw, b.Base, b.Rule.Format)
}

func convertReference(v record.Reference, b Binding) (any, error) {
	switch {
	case b.Rule.Part == PartID,
		b.Rule.Part == PartDefault && b.Base == uuidType:
		return v.ID, nil
	case b.Rule.Part == PartName,
		b.Rule.Part == PartDefault && b.Base.Kind() == reflect.String:
		return v.Name, nil
	case b.Base == uuidType:
		return v.ID, nil
	case b.Base.Kind() == reflect.String:
		return v.Name, nil
	default:
		return nil, fmt.Errorf("reference value cannot fill a %s target", b.Base)
	}
}

func convertChoice(v record.Choice, b Binding) (any, error) {
	if b.Rule.Part == PartValue || isIntegerShape(b.Base) {
		return coercePrimitive(v.Code, b.Base, b.Rule.Format)
	}
	return nil, fmt.Errorf("choice value cannot fill a %s target", b.Base)
}

func convertCurrency(v record.Currency, b Binding) (any, error) {
	if b.Rule.Part == PartValue || b.Base == decimalType || isFloatKind(b.Base.Kind()) {
		return coercePrimitive(v.Amount, b.Base, b.Rule.Format)
	}
	return nil, fmt.Errorf("currency value cannot fill a %s target", b.Base)
}

// convertMultiChoice projects option codes into an integer slice. Any
// other target shape is an unsupported combination and degrades to nil.
func convertMultiChoice(v record.MultiChoice, b Binding) (any, error) {
	if !isIntListShape(b.Base) {
		return nil, fmt.Errorf("multi-choice values require an integer slice target, not %s", b.Base)
	}

	out := reflect.MakeSlice(b.Base, 0, len(v.Codes))
	for _, code := range v.Codes {
		elem, err := integerTo(b.Base.Elem(), int64(code))
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}

// coercePrimitive is the generic fallback between primitive shapes. It
// returns values typed exactly as base so callers can assign directly.
func coercePrimitive(raw any, base reflect.Type, layout string) (any, error) {
	if isEnumShape(base) {
		return coerceEnum(raw, base)
	}

	switch base {
	case timeType:
		return coerceTime(raw, layout)
	case uuidType:
		return coerceIdentifier(raw)
	case decimalType:
		return coerceDecimal(raw)
	}

	switch base.Kind() {
	case reflect.String:
		s, err := stringify(raw, layout)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(s).Convert(base).Interface(), nil
	case reflect.Bool:
		return coerceBool(raw, base)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		return integerTo(base, n)
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(raw)
		if err != nil {
			return nil, err
		}
		out := reflect.New(base).Elem()
		out.SetFloat(f)
		return out.Interface(), nil
	case reflect.Slice:
		if base.Elem().Kind() == reflect.Uint8 {
			return coerceBytes(raw, base)
		}
	}

	return nil, fmt.Errorf("cannot coerce %T into %s", raw, base)
}

// coerceEnum never fails outright: an undefined member degrades to the
// zero member, returned alongside the diagnostic error.
func coerceEnum(raw any, base reflect.Type) (any, error) {
	zero := reflect.Zero(base).Interface()

	if s, ok := raw.(string); ok {
		if !reflect.PointerTo(base).Implements(textUnmarshalerType) {
			return zero, fmt.Errorf("cannot parse %q into %s", s, base)
		}
		p := reflect.New(base)
		if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return zero, fmt.Errorf("undefined %s name %q", base, s)
		}
		out := p.Elem()
		if !enumDefined(out) {
			return zero, fmt.Errorf("undefined %s name %q", base, s)
		}
		return out.Interface(), nil
	}

	n, err := toInt64(raw)
	if err != nil {
		return zero, fmt.Errorf("cannot coerce %T into %s", raw, base)
	}

	candidate := reflect.New(base).Elem()
	if candidate.CanInt() {
		if candidate.OverflowInt(n) {
			return zero, fmt.Errorf("code %d overflows %s", n, base)
		}
		candidate.SetInt(n)
	} else {
		if n < 0 || candidate.OverflowUint(uint64(n)) {
			return zero, fmt.Errorf("code %d overflows %s", n, base)
		}
		candidate.SetUint(uint64(n))
	}

	if !enumDefined(candidate) {
		return zero, fmt.Errorf("undefined %s code %d", base, n)
	}
	return candidate.Interface(), nil
}

// enumDefined consults the optional Valid method an enumeration type may
// expose. Types without one accept every coerced member.
func enumDefined(v reflect.Value) bool {
	if validator, ok := v.Interface().(interface{ Valid() bool }); ok {
		return validator.Valid()
	}
	return true
}

func coerceTime(raw any, layout string) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		if layout != "" {
			t, err := time.Parse(layout, v)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T into a date", raw)
	}
}

// coerceIdentifier degrades unparsable text to nil, not to a zero
// identifier.
func coerceIdentifier(raw any) (any, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("unparsable identifier %q", v)
		}
		return id, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T into an identifier", raw)
	}
}

func coerceDecimal(raw any) (any, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	}

	n, err := toInt64(raw)
	if err != nil {
		return nil, fmt.Errorf("cannot coerce %T into a decimal", raw)
	}
	return decimal.NewFromInt(n), nil
}

func coerceBool(raw any, base reflect.Type) (any, error) {
	switch v := raw.(type) {
	case bool:
		return reflect.ValueOf(v).Convert(base).Interface(), nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(parsed).Convert(base).Interface(), nil
	default:
		return nil, fmt.Errorf("cannot coerce %T into a bool", raw)
	}
}

func coerceBytes(raw any, base reflect.Type) (any, error) {
	switch v := raw.(type) {
	case []byte:
		return reflect.ValueOf(v).Convert(base).Interface(), nil
	case string:
		return reflect.ValueOf([]byte(v)).Convert(base).Interface(), nil
	default:
		return nil, fmt.Errorf("cannot coerce %T into bytes", raw)
	}
}

func renderTime(t time.Time, layout string, base reflect.Type) (any, error) {
	var s string
	if layout != "" {
		s = t.Format(layout)
	} else {
		s = t.UTC().Format(roundTripLayout)
	}
	return reflect.ValueOf(s).Convert(base).Interface(), nil
}

func stringify(raw any, layout string) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		if layout != "" {
			return v.Format(layout), nil
		}
		return v.UTC().Format(roundTripLayout), nil
	case uuid.UUID:
		return v.String(), nil
	case decimal.Decimal:
		return v.String(), nil
	}

	rv := reflect.ValueOf(raw)
	switch {
	case rv.CanInt():
		return strconv.FormatInt(rv.Int(), 10), nil
	case rv.CanUint():
		return strconv.FormatUint(rv.Uint(), 10), nil
	case rv.CanFloat():
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	case rv.Kind() == reflect.String:
		return rv.String(), nil
	case rv.Kind() == reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	}

	if s, ok := raw.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return "", fmt.Errorf("cannot render %T as text", raw)
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return n, nil
	case decimal.Decimal:
		return v.IntPart(), nil
	}

	rv := reflect.ValueOf(raw)
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		return safecast.ToInt64(rv.Uint())
	case rv.CanFloat():
		return safecast.ToInt64(rv.Float())
	default:
		return 0, fmt.Errorf("cannot coerce %T into an integer", raw)
	}
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, err
		}
		return f, nil
	case decimal.Decimal:
		return v.InexactFloat64(), nil
	}

	rv := reflect.ValueOf(raw)
	switch {
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	default:
		return 0, fmt.Errorf("cannot coerce %T into a float", raw)
	}
}

// integerTo range-checks n into the integer type base.
func integerTo(base reflect.Type, n int64) (any, error) {
	var (
		out any
		err error
	)
	switch base.Kind() {
	case reflect.Int:
		out, err = safecast.ToInt(n)
	case reflect.Int8:
		out, err = safecast.ToInt8(n)
	case reflect.Int16:
		out, err = safecast.ToInt16(n)
	case reflect.Int32:
		out, err = safecast.ToInt32(n)
	case reflect.Int64:
		out = n
	case reflect.Uint:
		out, err = safecast.ToUint(n)
	case reflect.Uint8:
		out, err = safecast.ToUint8(n)
	case reflect.Uint16:
		out, err = safecast.ToUint16(n)
	case reflect.Uint32:
		out, err = safecast.ToUint32(n)
	case reflect.Uint64:
		out, err = safecast.ToUint64(n)
	default:
		return nil, fmt.Errorf("%s is not an integer shape", base)
	}
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(out).Convert(base).Interface(), nil
}

// assign writes the converted value into the bound field, wrapping it in
// a pointer when the field is optional. A final coercion pass adapts
// values whose extraction part and target shape disagree, e.g. a
// reference identifier bound to a text field.
func assign(field reflect.Value, b Binding, out any) error {
	if b.IsPointer && b.Type.Elem() != b.Base {
		return fmt.Errorf("unsupported pointer depth on %s", b.Type)
	}

	val := reflect.ValueOf(out)
	if !val.Type().AssignableTo(b.Base) {
		coerced, err := coercePrimitive(out, b.Base, b.Rule.Format)
		if err != nil {
			return err
		}
		if coerced == nil {
			return fmt.Errorf("cannot adapt %T into %s", out, b.Base)
		}
		val = reflect.ValueOf(coerced)
		if !val.Type().AssignableTo(b.Base) {
			if !val.Type().ConvertibleTo(b.Base) {
				return fmt.Errorf("cannot adapt %T into %s", out, b.Base)
			}
			val = val.Convert(b.Base)
		}
	}

	if b.IsPointer {
		ptr := reflect.New(b.Base)
		ptr.Elem().Set(val)
		field.Set(ptr)
		return nil
	}
	field.Set(val)
	return nil
}

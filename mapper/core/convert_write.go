package core

import (
	"fmt"
	"reflect"

	safecast "github.com/ccoveille/go-safecast"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/entitymap/entitymap/mapper/record"
)

// convertWrite performs the inverse transformation: a non-nil,
// pointer-unwrapped property value becomes the attribute inserted into
// the outgoing builder. A nil result with a nil error means the
// destination's convention for "no value"; a non-nil error with a nil
// result skips the property; a non-nil error with a non-nil result is
// the best-effort pass-through of an unhandled shape.
func convertWrite(value any, b Binding) (any, error) {
	base := b.Base

	// An identifier with a reference hint becomes a lookup. A zero
	// identifier means "no lookup" and converts to nil.
	if base == uuidType && b.Rule.RefKind != "" {
		id, ok := value.(uuid.UUID)
		if !ok {
			return nil, fmt.Errorf("reference hint on non-identifier value %T", value)
		}
		if id == uuid.Nil {
			return nil, nil
		}
		return record.Reference{Kind: b.Rule.RefKind, ID: id}, nil
	}

	if isIntegerShape(base) && b.Rule.Part == PartValue {
		n, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		code, err := safecast.ToInt(n)
		if err != nil {
			return nil, err
		}
		return record.Choice{Code: code}, nil
	}

	if base == decimalType && (b.Rule.Part == PartValue || b.Rule.Part == PartDefault) {
		amount, ok := value.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("decimal shape holds %T", value)
		}
		return record.Currency{Amount: amount}, nil
	}

	// Two-state choices are raw booleans on the wire, and the remaining
	// primitive shapes pass through unchanged.
	switch {
	case base.Kind() == reflect.Bool,
		base.Kind() == reflect.String,
		base == timeType,
		base == uuidType,
		base == decimalType,
		isFloatKind(base.Kind()),
		base == byteSliceType,
		isIntegerShape(base) && !isEnumShape(base):
		return value, nil
	}

	return value, fmt.Errorf("unhandled shape %s", base)
}

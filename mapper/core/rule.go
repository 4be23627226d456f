package core

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	entityTagKey  = "entity"
	formatTagKey  = "entity_format"
	refKindTagKey = "entity_ref"
)

// Part selects which slice of a composite attribute value feeds the bound
// field when reading, and how the field is wrapped when writing.
type Part int

const (
	// PartDefault infers the extraction from the target field's shape.
	PartDefault Part = iota
	// PartID extracts a reference's identifier.
	PartID
	// PartName extracts a reference's display name.
	PartName
	// PartValue extracts the raw code or amount of a choice or currency.
	PartValue
	// PartLabel reads from the record's formatted-label side-table.
	PartLabel
)

func (p Part) String() string {
	switch p {
	case PartID:
		return "id"
	case PartName:
		return "name"
	case PartValue:
		return "value"
	case PartLabel:
		return "label"
	default:
		return "default"
	}
}

// Rule is the immutable mapping descriptor parsed from a field's tags.
type Rule struct {
	// Field is the attribute name, optionally with one alias prefix
	// separated by a dot.
	Field string
	// Part is the extraction part; PartDefault defers to the field shape.
	Part Part
	// Format is an optional time layout used when rendering dates to text
	// and when parsing text into dates.
	Format string
	// RefKind is the destination kind an identifier field points at; it
	// turns the field into a reference on the write path.
	RefKind string
}

// parseRule reads the entity tags off a struct field. The second return
// is false when the field carries no mapping tag and should be ignored.
func parseRule(field reflect.StructField) (Rule, bool, error) {
	tag := field.Tag.Get(entityTagKey)
	if tag == "" || tag == "-" {
		return Rule{}, false, nil
	}

	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Rule{}, false, fmt.Errorf("core: empty entity field name on %s", field.Name)
	}
	if strings.Count(name, ".") > 1 {
		return Rule{}, false, fmt.Errorf("core: entity field %q on %s has more than one alias separator", name, field.Name)
	}

	rule := Rule{
		Field:   name,
		Format:  strings.TrimSpace(field.Tag.Get(formatTagKey)),
		RefKind: strings.TrimSpace(field.Tag.Get(refKindTagKey)),
	}

	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "":
		case "id":
			rule.Part = PartID
		case "name":
			rule.Part = PartName
		case "value":
			rule.Part = PartValue
		case "label":
			rule.Part = PartLabel
		default:
			return Rule{}, false, fmt.Errorf("core: unknown extraction part %q on %s", strings.TrimSpace(opt), field.Name)
		}
	}

	return rule, true, nil
}

package core

import (
	"fmt"
	"strings"
)

// Logger represents the logging contract consumed by the mapper.
type Logger interface {
	Printf(string, ...any)
}

// Diagnostic records one non-fatal per-field mapping problem. Mapping
// degrades and continues; diagnostics accumulate so callers can inspect
// what was dropped or defaulted.
type Diagnostic struct {
	Property string
	Field    string
	RecordID string
	Message  string
	Err      error
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "property %s (field %s)", d.Property, d.Field)
	if d.RecordID != "" {
		fmt.Fprintf(&b, " record %s", d.RecordID)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Err != nil {
		fmt.Fprintf(&b, ": %v", d.Err)
	}
	return b.String()
}

// Diagnostics is the accumulated set for one mapping call; empty means a
// clean mapping.
type Diagnostics []Diagnostic

// ForProperty returns the diagnostics recorded against the named property.
func (ds Diagnostics) ForProperty(name string) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Property == name {
			out = append(out, d)
		}
	}
	return out
}

package record

import (
	"testing"

	"github.com/google/uuid"
)

func TestEntityAttributes(t *testing.T) {
	id := uuid.New()
	e := NewEntity("contact", id)

	if e.Kind() != "contact" {
		t.Fatalf("expected kind contact, got %s", e.Kind())
	}
	if e.ID() != id {
		t.Fatalf("expected id %s, got %s", id, e.ID())
	}

	e.Set("firstname", "Ada").Set("age", 36).Set("nickname", nil)

	if !e.Contains("firstname") {
		t.Fatalf("expected firstname to be present")
	}
	if !e.Contains("nickname") {
		t.Fatalf("expected nil-valued nickname to count as present")
	}
	if e.Contains("lastname") {
		t.Fatalf("did not expect lastname to be present")
	}

	v, ok := e.Get("age")
	if !ok || v != 36 {
		t.Fatalf("expected age 36, got %v (present=%v)", v, ok)
	}
	if e.Len() != 3 {
		t.Fatalf("expected 3 attributes, got %d", e.Len())
	}
}

func TestEntityFormattedLabels(t *testing.T) {
	e := NewEntity("contact", uuid.Nil)
	e.Set("statuscode", Choice{Code: 2}).SetLabel("statuscode", "Inactive")

	label, ok := e.FormattedLabel("statuscode")
	if !ok || label != "Inactive" {
		t.Fatalf("expected label Inactive, got %q (present=%v)", label, ok)
	}

	if _, ok := e.FormattedLabel("firstname"); ok {
		t.Fatalf("did not expect a label for firstname")
	}
}

func TestBuilderShapes(t *testing.T) {
	create := NewCreate("account")
	if _, update := create.RecordID(); update {
		t.Fatalf("expected create builder to carry no identifier")
	}
	if create.Kind() != "account" {
		t.Fatalf("expected kind account, got %s", create.Kind())
	}

	id := uuid.New()
	patch := NewUpdate("account", id)
	gotID, update := patch.RecordID()
	if !update || gotID != id {
		t.Fatalf("expected update builder with id %s, got %s (update=%v)", id, gotID, update)
	}
}

func TestBuilderSingleInsertion(t *testing.T) {
	b := NewCreate("account")

	if err := b.Set("name", "Globex"); err != nil {
		t.Fatalf("first insertion returned error: %v", err)
	}
	if err := b.Set("name", "Initech"); err == nil {
		t.Fatalf("expected duplicate insertion to fail")
	}

	v, ok := b.Get("name")
	if !ok || v != "Globex" {
		t.Fatalf("expected first insertion to win, got %v", v)
	}
}

func TestBuilderExplicitNull(t *testing.T) {
	b := NewCreate("account")
	if err := b.Set("parentaccountid", nil); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	v, ok := b.Get("parentaccountid")
	if !ok {
		t.Fatalf("expected explicit null to be present")
	}
	if v != nil {
		t.Fatalf("expected nil value, got %v", v)
	}
	if b.Has("telephone1") {
		t.Fatalf("did not expect telephone1 to be present")
	}
}

func TestBuilderEntity(t *testing.T) {
	id := uuid.New()
	b := NewUpdate("account", id)
	if err := b.Set("name", "Globex"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	e := b.Entity()
	if e.Kind() != "account" || e.ID() != id {
		t.Fatalf("unexpected entity shape: kind=%s id=%s", e.Kind(), e.ID())
	}
	if v, ok := e.Get("name"); !ok || v != "Globex" {
		t.Fatalf("expected name Globex, got %v", v)
	}
}

package core

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/entitymap/entitymap/mapper/record"
)

type testContact struct {
	FirstName   string          `entity:"firstname"`
	LastName    *string         `entity:"lastname"`
	Age         int             `entity:"age"`
	CreditLimit decimal.Decimal `entity:"creditlimit,value"`
	OwnerID     uuid.UUID       `entity:"ownerid,id" entity_ref:"systemuser"`
	OwnerName   string          `entity:"ownerid,name"`
	Status      caseStatus      `entity:"statuscode,value"`
	StatusLabel string          `entity:"statuscode,label"`
	Topics      []int           `entity:"topics"`
	CreatedOn   time.Time       `entity:"createdon"`
	CreatedText string          `entity:"createdon,label"`
	ParentName  string          `entity:"account.name"`
}

type quietLogger struct{}

func (quietLogger) Printf(string, ...any) {}

func newTestMapper() *Mapper {
	return New(WithLogger(quietLogger{}))
}

func newTestEntity(t *testing.T) *record.Entity {
	t.Helper()

	owner := uuid.New()
	created := time.Date(2025, 4, 20, 14, 30, 0, 0, time.UTC)

	e := record.NewEntity("contact", uuid.New())
	e.Set("firstname", "Ada").
		Set("lastname", "Lovelace").
		Set("age", 36).
		Set("creditlimit", record.Currency{Amount: decimal.NewFromInt(5000)}).
		Set("ownerid", record.Reference{Kind: "systemuser", ID: owner, Name: "Grace Hopper"}).
		Set("statuscode", record.Choice{Code: 2}).
		Set("topics", record.MultiChoice{Codes: []int{1, 4}}).
		Set("createdon", created).
		Set("account.name", record.Aliased{Tag: "account", Value: "Analytical Engines Ltd"}).
		SetLabel("statuscode", "Inactive").
		SetLabel("createdon", "4/20/2025 2:30 PM")
	return e
}

func TestMapOne(t *testing.T) {
	m := newTestMapper()
	e := newTestEntity(t)

	contact, diags, err := MapOne[testContact](m, e)
	if err != nil {
		t.Fatalf("MapOne returned error: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("expected clean mapping, got diagnostics: %v", diags)
	}
	if contact == nil {
		t.Fatalf("expected a mapped contact")
	}

	if contact.FirstName != "Ada" {
		t.Errorf("expected FirstName Ada, got %q", contact.FirstName)
	}
	if contact.LastName == nil || *contact.LastName != "Lovelace" {
		t.Errorf("unexpected LastName: %v", contact.LastName)
	}
	if contact.Age != 36 {
		t.Errorf("expected Age 36, got %d", contact.Age)
	}
	if !contact.CreditLimit.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected CreditLimit 5000, got %s", contact.CreditLimit)
	}

	ownerRef, _ := e.Get("ownerid")
	if contact.OwnerID != ownerRef.(record.Reference).ID {
		t.Errorf("unexpected OwnerID: %s", contact.OwnerID)
	}
	if contact.OwnerName != "Grace Hopper" {
		t.Errorf("expected OwnerName Grace Hopper, got %q", contact.OwnerName)
	}

	if contact.Status != caseStatusInactive {
		t.Errorf("expected Status inactive, got %v", contact.Status)
	}
	if contact.StatusLabel != "Inactive" {
		t.Errorf("expected StatusLabel Inactive, got %q", contact.StatusLabel)
	}

	if len(contact.Topics) != 2 || contact.Topics[1] != 4 {
		t.Errorf("unexpected Topics: %v", contact.Topics)
	}
	if !contact.CreatedOn.Equal(time.Date(2025, 4, 20, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected CreatedOn: %v", contact.CreatedOn)
	}
	if contact.CreatedText != "4/20/2025 2:30 PM" {
		t.Errorf("unexpected CreatedText: %q", contact.CreatedText)
	}
	if contact.ParentName != "Analytical Engines Ltd" {
		t.Errorf("expected aliased value to be unwrapped, got %q", contact.ParentName)
	}
}

func TestMapOneNilSource(t *testing.T) {
	m := newTestMapper()

	contact, diags, err := MapOne[testContact](m, nil)
	if contact != nil || diags != nil || err != nil {
		t.Fatalf("expected nil result for nil source, got %v, %v, %v", contact, diags, err)
	}

	var typed *record.Entity
	contact, _, err = MapOne[testContact](m, typed)
	if contact != nil || err != nil {
		t.Fatalf("expected nil result for typed nil source, got %v, %v", contact, err)
	}
}

func TestMapOneAbsentFieldsKeepDefaults(t *testing.T) {
	m := newTestMapper()
	e := record.NewEntity("contact", uuid.New())
	e.Set("firstname", "Ada")

	contact, diags, err := MapOne[testContact](m, e)
	if err != nil {
		t.Fatalf("MapOne returned error: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics for absent fields, got %v", diags)
	}

	if contact.FirstName != "Ada" {
		t.Errorf("expected FirstName Ada, got %q", contact.FirstName)
	}
	if contact.LastName != nil {
		t.Errorf("expected nil LastName, got %v", contact.LastName)
	}
	if contact.Age != 0 || contact.Status != caseStatusUnknown || contact.OwnerID != uuid.Nil {
		t.Errorf("expected zero values for absent fields: %+v", contact)
	}
	if !contact.CreatedOn.IsZero() {
		t.Errorf("expected zero CreatedOn, got %v", contact.CreatedOn)
	}
}

func TestMapOneMissingLabelIsNull(t *testing.T) {
	m := newTestMapper()
	e := record.NewEntity("contact", uuid.New())
	e.Set("statuscode", record.Choice{Code: 1})

	contact, diags, err := MapOne[testContact](m, e)
	if err != nil {
		t.Fatalf("MapOne returned error: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}
	if contact.Status != caseStatusActive {
		t.Errorf("expected active status, got %v", contact.Status)
	}
	if contact.StatusLabel != "" {
		t.Errorf("expected empty label when the side-table has none, got %q", contact.StatusLabel)
	}
}

func TestMapOneDegradesAndContinues(t *testing.T) {
	m := newTestMapper()
	id := uuid.New()
	e := record.NewEntity("contact", id)
	e.Set("firstname", "Ada").
		Set("statuscode", record.Choice{Code: 99}).
		Set("age", "not-a-number")

	contact, diags, err := MapOne[testContact](m, e)
	if err != nil {
		t.Fatalf("MapOne returned error: %v", err)
	}
	if contact == nil {
		t.Fatalf("expected partial mapping result")
	}

	if contact.FirstName != "Ada" {
		t.Errorf("expected remaining fields to map, got %q", contact.FirstName)
	}
	if contact.Status != caseStatusUnknown {
		t.Errorf("expected zero enum member, got %v", contact.Status)
	}
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d: %v", len(diags), diags)
	}

	statusDiags := diags.ForProperty("Status")
	if len(statusDiags) != 1 {
		t.Fatalf("expected one Status diagnostic, got %v", statusDiags)
	}
	d := statusDiags[0]
	if d.Field != "statuscode" || d.RecordID != id.String() {
		t.Errorf("diagnostic missing context: %+v", d)
	}
	if !strings.Contains(d.String(), "statuscode") {
		t.Errorf("diagnostic text should mention the field: %s", d)
	}
}

func TestMapMany(t *testing.T) {
	m := newTestMapper()

	out, diags, err := MapMany[testContact](m, nil)
	if err != nil {
		t.Fatalf("MapMany returned error: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice for nil collection, got %v", out)
	}
	if diags != nil {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}

	out, _, err = MapMany[testContact](m, &record.Collection{Kind: "contact"})
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("expected empty slice for empty collection, got %v (%v)", out, err)
	}

	coll := &record.Collection{
		Kind:    "contact",
		Records: []*record.Entity{newTestEntity(t), newTestEntity(t)},
	}
	out, diags, err = MapMany[testContact](m, coll)
	if err != nil {
		t.Fatalf("MapMany returned error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 mapped contacts, got %d", len(out))
	}
	if len(diags) != 0 {
		t.Fatalf("expected clean mapping, got %v", diags)
	}
	if out[0].FirstName != "Ada" || out[1].FirstName != "Ada" {
		t.Fatalf("unexpected mapped contacts: %+v", out)
	}
}

func TestMapIntoRequiresStructPointer(t *testing.T) {
	m := newTestMapper()
	e := newTestEntity(t)

	if _, err := m.MapInto(e, nil); err != ErrNilTarget {
		t.Fatalf("expected ErrNilTarget, got %v", err)
	}
	var contact testContact
	if _, err := m.MapInto(e, contact); err != ErrNilTarget {
		t.Fatalf("expected ErrNilTarget for non-pointer, got %v", err)
	}
	n := 3
	if _, err := m.MapInto(e, &n); err != ErrNilTarget {
		t.Fatalf("expected ErrNilTarget for non-struct, got %v", err)
	}
}

func TestMapperSharedRegistry(t *testing.T) {
	registry := NewRegistry()
	first := New(WithRegistry(registry), WithLogger(quietLogger{}))
	second := New(WithRegistry(registry), WithLogger(quietLogger{}))

	if first.Registry() != second.Registry() {
		t.Fatalf("expected both mappers to share the registry")
	}

	if _, _, err := MapOne[testContact](first, newTestEntity(t)); err != nil {
		t.Fatalf("MapOne returned error: %v", err)
	}
	if registry.Size() != 1 {
		t.Fatalf("expected one cached binding table, got %d", registry.Size())
	}
}

package kb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseEntityID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
		typ     EntityType
		name    string
	}{
		{"person.john_doe", false, "person", "john_doe"},
		{"task.cleanup", false, "task", "cleanup"},
		{"noseparator", true, "", ""},
		{".missing_type", true, "", ""},
		{"missing_name.", true, "", ""},
		{"", true, "", ""},
	}

	for _, tt := range tests {
		id, err := ParseEntityID(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseEntityID(%q) expected error, got %q", tt.input, id)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseEntityID(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if id.Type() != tt.typ || id.Name() != tt.name {
			t.Errorf("ParseEntityID(%q) = type %q name %q, want %q %q",
				tt.input, id.Type(), id.Name(), tt.typ, tt.name)
		}
	}
}

func TestParseReference(t *testing.T) {
	ref, err := ParseReference("person.john_doe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Entity != "person.john_doe" || ref.Field != "" {
		t.Errorf("entity-level reference parsed wrong: %+v", ref)
	}

	ref, err = ParseReference("person.john_doe.email")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Entity != "person.john_doe" || ref.Field != "email" {
		t.Errorf("field-level reference parsed wrong: %+v", ref)
	}

	for _, bad := range []string{"person", "a.b.c.d", "person..email", ""} {
		if _, err := ParseReference(bad); err == nil {
			t.Errorf("ParseReference(%q) expected error", bad)
		}
	}
}

func TestReferenceCanonical(t *testing.T) {
	ref := Reference{Entity: "Person.John_Doe", Field: "Email"}
	if got := ref.Canonical(); got != "person.john_doe.email" {
		t.Errorf("Canonical() = %q, want lowercase form", got)
	}
	ref = Reference{Entity: "org.acme"}
	if got := ref.Canonical(); got != "org.acme" {
		t.Errorf("Canonical() = %q, want org.acme", got)
	}
}

func TestValueString(t *testing.T) {
	amount := decimal.RequireFromString("100.50")
	instant := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		value Value
		want  string
	}{
		{NewString("hello"), "hello"},
		{NewInteger(-42), "-42"},
		{NewFloat(1.5), "1.5"},
		{NewBoolean(true), "true"},
		{NewCurrency(amount, "usd"), "100.5 USD"},
		{NewDateTime(instant), "2026-01-15T09:00:00Z"},
		{NewReference(Reference{Entity: "person.jane"}), "person.jane"},
		{NewPath("docs/readme.md"), "docs/readme.md"},
		{NewEnum("active"), "active"},
		{NewList([]Value{NewInteger(1), NewInteger(2)}), "[1, 2]"},
	}

	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("%s value String() = %q, want %q", tt.value.TypeName(), got, tt.want)
		}
	}
}

func TestCurrencyCodeUppercased(t *testing.T) {
	v := NewCurrency(decimal.NewFromInt(10), "eur")
	if v.CurrencyCode() != "EUR" {
		t.Errorf("currency code = %q, want EUR", v.CurrencyCode())
	}
}

func TestAsFloatPromotion(t *testing.T) {
	if got := NewInteger(7).AsFloat(); got != 7.0 {
		t.Errorf("integer AsFloat() = %v, want 7.0", got)
	}
	if got := NewFloat(2.5).AsFloat(); got != 2.5 {
		t.Errorf("float AsFloat() = %v, want 2.5", got)
	}
}

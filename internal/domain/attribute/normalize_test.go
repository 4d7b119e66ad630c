package attribute

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/crossref/internal/domain"
)

func TestNormalize_Valid(t *testing.T) {
	tests := []struct {
		typ  Type
		in   string
		want string
	}{
		{Files, " ABCDEF0123456789ABCDEF0123456789 ", "abcdef0123456789abcdef0123456789"},
		{Email, " Foo.Bar@Example.COM", "foo.bar@example.com"},
		{Phone, "+1 (555) 123-4567", "+15551234567"},
		{Domain, "WWW.Example.com", "www.example.com"},
		{Domain, "10.0.0.1", "10.0.0.1"},
		{MAC, "00:1A:2B:3C:4D:5E", "001a2b3c4d5e"},
		{MAC, "00-1a-2b-3c-4d-5e-6f-70", "001a2b3c4d5e6f70"},
		{IMEI, "35-209900-176148-1", "352099001761481"},
		{IMSI, "310150123456789", "310150123456789"},
		{ICCID, "8944110068235470000F", "8944110068235470000f"},
		{USBID, "  0x1234:0x5678 ", "0x1234:0x5678"},
		{SSID, "HomeNet", "homenet"},
		{InstalledPrograms, "Mozilla Firefox", "mozilla firefox"},
		{OSAccount, "S-1-5-21", "s-1-5-21"},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.typ, tt.in)
		if err != nil {
			t.Errorf("Normalize(%s, %q) unexpected error: %v", tt.typ, tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%s, %q) = %q, want %q", tt.typ, tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []struct {
		typ Type
		in  string
	}{
		{Files, "abc123"},
		{Files, ""},
		{Email, "not-an-email"},
		{Phone, "12"},
		{Domain, "no spaces.com"},
		{MAC, "zz:zz:zz:zz:zz:zz"},
		{MAC, "001a2b"},
		{IMEI, "12345"},
		{IMSI, "abcdefghijklmno"},
		{ICCID, "1234"},
		{SSID, "   "},
		{Type(99), "x"},
	}

	for _, tt := range tests {
		_, err := Normalize(tt.typ, tt.in)
		if err == nil {
			t.Errorf("Normalize(%s, %q) expected error", tt.typ, tt.in)
			continue
		}
		if !errors.Is(err, domain.ErrNormalization) {
			t.Errorf("Normalize(%s, %q) error = %v, want ErrNormalization", tt.typ, tt.in, err)
		}
	}
}

func TestNormalize_MaxLength(t *testing.T) {
	if _, err := Normalize(USBID, strings.Repeat("a", MaxValueLength-1)); err != nil {
		t.Errorf("value below limit rejected: %v", err)
	}
	_, err := Normalize(USBID, strings.Repeat("a", MaxValueLength))
	if err == nil {
		t.Fatal("expected error for value at limit")
	}
	var nerr *domain.NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("error = %T, want *NormalizationError", err)
	}
	if nerr.Reason != "value too long" {
		t.Errorf("Reason = %q", nerr.Reason)
	}
}

func TestNew_DefaultsKnownStatus(t *testing.T) {
	a, err := New(Email, "A@B.io", Source{CaseUUID: "c1", DataSourceObjID: 7})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.KnownStatus() != domain.KnownUnknown {
		t.Errorf("KnownStatus() = %q, want unknown", a.KnownStatus())
	}
	if a.Key() != "1:a@b.io" {
		t.Errorf("Key() = %q", a.Key())
	}
	b := a.WithSource("c2", 9)
	if b.CaseUUID() != "c2" || b.DataSourceObjID() != 9 || a.CaseUUID() != "c1" {
		t.Errorf("WithSource changed original or missed fields: %+v %+v", a, b)
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range AllTypes() {
		got, err := ParseType(typ.String())
		if err != nil || got != typ {
			t.Errorf("ParseType(%q) = %v, %v", typ.String(), got, err)
		}
	}
	if got, err := ParseType("6"); err != nil || got != MAC {
		t.Errorf("ParseType(\"6\") = %v, %v", got, err)
	}
	if _, err := ParseType("bogus"); err == nil {
		t.Error("expected error for unknown type")
	}
}

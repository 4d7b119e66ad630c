package crossref

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookup_Normalizes(t *testing.T) {
	c := newTestClient(t, nil)

	res, err := c.Lookup(context.Background(), "files", "  "+"5D41402ABC4B2A76B9719D911017C592", "")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Value != testHash || res.Type != "files" {
		t.Errorf("unexpected key %s/%s", res.Type, res.Value)
	}
	if res.Cases != 0 || len(res.Occurrences) != 0 || len(res.Outcomes) != 0 {
		t.Errorf("expected no occurrences or outcomes, got %+v", res)
	}
}

func TestLookup_InvalidInput(t *testing.T) {
	c := newTestClient(t, nil)
	ctx := context.Background()

	if _, err := c.Lookup(ctx, "colour", "red", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown type: expected ErrInvalidInput, got %v", err)
	}
	if _, err := c.Lookup(ctx, "email", "not-an-email", ""); !errors.Is(err, ErrNormalization) {
		t.Errorf("bad email: expected ErrNormalization, got %v", err)
	}
}

func TestLookup_UniqueDomain(t *testing.T) {
	c := newTestClient(t, nil)

	res, err := c.Lookup(context.Background(), "domain", "Example.ORG", "")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	want := []Outcome{{Kind: "unseen", Score: "likely_notable"}}
	if diff := cmp.Diff(want, res.Outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestTag_NotFound(t *testing.T) {
	c := newTestClient(t, nil)

	_, err := c.Tag(context.Background(), "files", testHash, "case-a", "bad")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTypes(t *testing.T) {
	c := newTestClient(t, nil)
	ctx := context.Background()

	types, err := c.Types(ctx)
	if err != nil {
		t.Fatalf("Types: %v", err)
	}
	if len(types) != 12 || !types["files"] || !types["mac"] {
		t.Fatalf("expected every type seeded enabled, got %v", types)
	}

	if err := c.SetTypeEnabled(ctx, "mac", false); err != nil {
		t.Fatalf("SetTypeEnabled: %v", err)
	}
	types, _ = c.Types(ctx)
	if types["mac"] {
		t.Error("mac must be disabled")
	}

	if err := c.SetTypeEnabled(ctx, "colour", true); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

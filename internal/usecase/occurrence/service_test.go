package occurrence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	domocc "github.com/kailas-cloud/crossref/internal/domain/occurrence"
)

// --- Mocks ---

type mockStore struct {
	occs []domocc.Occurrence
	err  error

	gotType  attribute.Type
	gotValue string

	tagged    int
	tagErr    error
	gotCase   string
	gotStatus domain.KnownStatus
}

func (m *mockStore) FindOccurrences(_ context.Context, t attribute.Type, value string) ([]domocc.Occurrence, error) {
	m.gotType, m.gotValue = t, value
	return m.occs, m.err
}

func (m *mockStore) SetKnownStatus(
	_ context.Context, t attribute.Type, value, caseUUID string, status domain.KnownStatus,
) (int, error) {
	m.gotType, m.gotValue, m.gotCase, m.gotStatus = t, value, caseUUID, status
	return m.tagged, m.tagErr
}

// --- Tests ---

func TestFind_ExcludesCurrentCase(t *testing.T) {
	store := &mockStore{occs: []domocc.Occurrence{
		domocc.New("self", "Current", domain.KnownBad),
		domocc.New("a", "Case A", domain.KnownUnknown),
		domocc.New("self", "Current", domain.KnownUnknown),
		domocc.New("b", "Case B", domain.KnownBad),
	}}
	a, err := attribute.New(attribute.Email, "x@y.org", attribute.Source{CaseUUID: "self"})
	if err != nil {
		t.Fatalf("attribute.New: %v", err)
	}

	got, err := New(store).Find(context.Background(), a)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if store.gotType != attribute.Email || store.gotValue != "x@y.org" {
		t.Errorf("store called with %s/%q", store.gotType, store.gotValue)
	}
	if diff := cmp.Diff([]string{"Case A", "Case B"}, domocc.CaseNames(got)); diff != "" {
		t.Errorf("cases (-want +got):\n%s", diff)
	}
}

func TestFind_StoreUnavailable(t *testing.T) {
	store := &mockStore{err: domain.ErrStoreUnavailable}
	a := attribute.Reconstruct(attribute.Files, "abc", attribute.Source{CaseUUID: "c"})

	_, err := New(store).Find(context.Background(), a)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestFindInCases_NoExclusion(t *testing.T) {
	store := &mockStore{occs: []domocc.Occurrence{domocc.New("a", "A", "")}}
	got, err := New(store).FindInCases(context.Background(), attribute.Domain, "example.org", "")
	if err != nil || len(got) != 1 {
		t.Fatalf("FindInCases = %v, %v", got, err)
	}
}

func TestTag(t *testing.T) {
	store := &mockStore{tagged: 3}
	n, err := New(store).Tag(context.Background(), attribute.Files, "abc", "case-1", domain.KnownBad)
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if n != 3 {
		t.Errorf("updated = %d, want 3", n)
	}
	if store.gotCase != "case-1" || store.gotStatus != domain.KnownBad {
		t.Errorf("store called with %q/%q", store.gotCase, store.gotStatus)
	}
}

func TestTag_RequiresCase(t *testing.T) {
	_, err := New(&mockStore{}).Tag(context.Background(), attribute.Files, "abc", "", domain.KnownBad)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestTag_NotFound(t *testing.T) {
	store := &mockStore{tagErr: domain.ErrNotFound}
	_, err := New(store).Tag(context.Background(), attribute.Files, "abc", "case-1", domain.KnownBad)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{}, &mockPinger{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{ComponentCorrelationStore, ComponentCaseDB, ComponentNotifications} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_StoreDown(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("conn refused")}, &mockPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentCorrelationStore] != CheckError {
		t.Errorf("expected store %q, got %q", CheckError, r.Checks[ComponentCorrelationStore])
	}
}

func TestCheck_CaseDBDown(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{err: errors.New("timeout")}, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentCaseDB] != CheckError {
		t.Error("expected case db error")
	}
}

func TestCheck_NotifierDown(t *testing.T) {
	svc := New(&mockPinger{}, nil, &mockPinger{err: errors.New("nats closed")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
}

func TestCheck_OptionalComponentsAbsent(t *testing.T) {
	svc := New(&mockPinger{}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[ComponentCaseDB]; ok {
		t.Error("case db check should be absent when nil")
	}
	if _, ok := r.Checks[ComponentNotifications]; ok {
		t.Error("notifications check should be absent when nil")
	}
}

type blockingPinger struct{}

func (blockingPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCheck_SlowComponentTimesOut(t *testing.T) {
	svc := New(&mockPinger{}, blockingPinger{}, nil)

	start := time.Now()
	r := svc.Check(context.Background())

	if elapsed := time.Since(start); elapsed > CheckTimeout+time.Second {
		t.Fatalf("check took %s", elapsed)
	}
	if r.Status != Degraded || r.Checks[ComponentCaseDB] != CheckError {
		t.Errorf("expected degraded with case db error, got %+v", r)
	}
}

package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/crossref/internal/logger"
)

// Status is the overall state reported by /health.
type Status string

// Overall states. Only a correlation store outage is Unhealthy: ingest can
// still record attributes when the case database or the bus is down.
const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is the state of one component.
type CheckResult string

// Component states.
const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentCorrelationStore = "correlation_store"
	ComponentCaseDB           = "case_db"
	ComponentNotifications    = "notifications"
)

// CheckTimeout bounds each component ping.
const CheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service pings the backing services of the engine.
type Service struct {
	components map[string]Pinger
}

// New creates a Service. caseDB and notifier may be nil and are then not
// reported.
func New(store, caseDB, notifier Pinger) *Service {
	c := map[string]Pinger{ComponentCorrelationStore: store}
	if caseDB != nil {
		c[ComponentCaseDB] = caseDB
	}
	if notifier != nil {
		c[ComponentNotifications] = notifier
	}
	return &Service{components: c}
}

// Check pings every component concurrently.
func (s *Service) Check(ctx context.Context) Report {
	log := logger.FromContext(ctx)
	checks := make(map[string]CheckResult, len(s.components))
	var mu sync.Mutex

	var g errgroup.Group
	for name, p := range s.components {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, CheckTimeout)
			defer cancel()

			res := CheckOK
			if err := p.Ping(pctx); err != nil {
				log.Warn("Health check failed", zap.String("component", name), zap.Error(err))
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: aggregate(checks), Checks: checks}
}

func aggregate(checks map[string]CheckResult) Status {
	if checks[ComponentCorrelationStore] == CheckError {
		return Unhealthy
	}
	for _, v := range checks {
		if v == CheckError {
			return Degraded
		}
	}
	return Healthy
}

package crossref

import "context"

// HealthStatus is the state of the engine's backing services. Status is
// "ok", "degraded" (case database or bus down) or "error" (correlation
// store down). Checks holds "ok" or "error" per component.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// OK reports whether every component answered.
func (h HealthStatus) OK() bool { return h.Status == "ok" }

// Health pings the correlation store and, when configured, the case
// database and the notification bus.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	h := HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}
	return h
}

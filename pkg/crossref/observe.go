package crossref

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// clientMetrics are the collectors registered by WithPrometheus.
type clientMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	// items counts processed items per pipeline stage they reached.
	items *prometheus.CounterVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossref",
		Subsystem: "sdk",
		Name:      "calls_total",
		Help:      "Client calls by operation and result.",
	}, []string{"operation", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crossref",
		Subsystem: "sdk",
		Name:      "call_duration_seconds",
		Help:      "Client call latency in seconds.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
	}, []string{"operation"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossref",
		Subsystem: "sdk",
		Name:      "item_attributes_total",
		Help:      "Attributes seen by Worker.Process, by stage.",
	}, []string{"stage"})

	m := &clientMetrics{}
	var err error
	if m.calls, err = reuse(reg, calls); err != nil {
		return nil, err
	}
	if m.latency, err = reuse(reg, latency); err != nil {
		return nil, err
	}
	if m.items, err = reuse(reg, items); err != nil {
		return nil, err
	}
	return m, nil
}

// reuse registers c, or returns the collector a previous client registered
// under the same name so several clients can share one registry.
func reuse[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("crossref: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("crossref: metric registered with type %T", are.ExistingCollector)
	}
	return existing, nil
}

// observer logs and measures client calls. A nil observer is a no-op.
type observer struct {
	logger  *zap.Logger
	metrics *clientMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	took := time.Since(start)

	if o.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		o.metrics.calls.WithLabelValues(op, result).Inc()
		o.metrics.latency.WithLabelValues(op).Observe(took.Seconds())
	}

	if err != nil {
		o.logger.Warn("crossref call failed", zap.String("op", op), zap.Duration("took", took), zap.Error(err))
		return
	}
	o.logger.Debug("crossref call", zap.String("op", op), zap.Duration("took", took))
}

// observeItem records how far the attributes of one item got.
func (o *observer) observeItem(res ProcessResult) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.items.WithLabelValues("extracted").Add(float64(res.Attributes))
	o.metrics.items.WithLabelValues("claimed").Add(float64(res.Claimed))
	o.metrics.items.WithLabelValues("flagged").Add(float64(res.Outcomes))
	o.metrics.items.WithLabelValues("published").Add(float64(res.Published))
}

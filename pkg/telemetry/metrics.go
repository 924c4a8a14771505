package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricPassesTotal         = "tradebot_poll_passes_total"
	MetricPassFailuresTotal   = "tradebot_poll_pass_failures_total"
	MetricOffersHandledTotal  = "tradebot_offers_handled_total"
	MetricDecisionsTotal      = "tradebot_decisions_total"
	MetricHandshakesTotal     = "tradebot_handshakes_total"
	MetricHandshakeFailsTotal = "tradebot_handshake_failures_total"
	MetricSessionValid        = "tradebot_session_valid"
	MetricPendingOffers       = "tradebot_pending_offers"
	MetricPassDuration        = "tradebot_poll_pass_duration_ms"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	PassesTotal         metric.Int64Counter
	PassFailuresTotal   metric.Int64Counter
	OffersHandledTotal  metric.Int64Counter
	DecisionsTotal      metric.Int64Counter
	HandshakesTotal     metric.Int64Counter
	HandshakeFailsTotal metric.Int64Counter
	SessionValid        metric.Int64ObservableGauge
	PendingOffers       metric.Int64ObservableGauge
	PassDuration        metric.Float64Histogram

	// State for observable gauges
	mu            sync.RWMutex
	sessionValid  int64
	pendingOffers int64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{}
		// Initialization of instruments happens in InitMetrics
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.PassesTotal, err = meter.Int64Counter(MetricPassesTotal, metric.WithDescription("Total evaluation passes run"))
	if err != nil {
		return err
	}

	m.PassFailuresTotal, err = meter.Int64Counter(MetricPassFailuresTotal, metric.WithDescription("Evaluation passes that failed before completing"))
	if err != nil {
		return err
	}

	m.OffersHandledTotal, err = meter.Int64Counter(MetricOffersHandledTotal, metric.WithDescription("Offers counted as handled"))
	if err != nil {
		return err
	}

	m.DecisionsTotal, err = meter.Int64Counter(MetricDecisionsTotal, metric.WithDescription("Decisions by action and reason"))
	if err != nil {
		return err
	}

	m.HandshakesTotal, err = meter.Int64Counter(MetricHandshakesTotal, metric.WithDescription("Login handshakes attempted"))
	if err != nil {
		return err
	}

	m.HandshakeFailsTotal, err = meter.Int64Counter(MetricHandshakeFailsTotal, metric.WithDescription("Login handshakes that failed"))
	if err != nil {
		return err
	}

	m.PassDuration, err = meter.Float64Histogram(MetricPassDuration, metric.WithDescription("Duration of one evaluation pass"), metric.WithUnit("ms"))
	if err != nil {
		return err
	}

	m.SessionValid, err = meter.Int64ObservableGauge(MetricSessionValid, metric.WithDescription("Web session validity (1=valid, 0=invalid)"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			obs.Observe(m.sessionValid)
			return nil
		}))
	if err != nil {
		return err
	}

	m.PendingOffers, err = meter.Int64ObservableGauge(MetricPendingOffers, metric.WithDescription("Pending received offers reported by the platform"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			obs.Observe(m.pendingOffers)
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// SetSessionValid records the current session validity for the gauge
func (m *MetricsHolder) SetSessionValid(valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if valid {
		m.sessionValid = 1
	} else {
		m.sessionValid = 0
	}
}

// SetPendingOffers records the pending offer count for the gauge
func (m *MetricsHolder) SetPendingOffers(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingOffers = int64(count)
}

// RecordDecision increments the decision counter tagged with action and reason
func (m *MetricsHolder) RecordDecision(ctx context.Context, action, reason string) {
	if m.DecisionsTotal == nil {
		return
	}
	m.DecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("reason", reason),
	))
}

// RecordHandled adds to the handled-offer counter
func (m *MetricsHolder) RecordHandled(ctx context.Context, count int) {
	if m.OffersHandledTotal == nil {
		return
	}
	m.OffersHandledTotal.Add(ctx, int64(count))
}

// RecordPass records one completed pass and its duration
func (m *MetricsHolder) RecordPass(ctx context.Context, duration time.Duration, failed bool) {
	if m.PassesTotal != nil {
		m.PassesTotal.Add(ctx, 1)
	}
	if failed && m.PassFailuresTotal != nil {
		m.PassFailuresTotal.Add(ctx, 1)
	}
	if m.PassDuration != nil {
		m.PassDuration.Record(ctx, float64(duration.Milliseconds()))
	}
}

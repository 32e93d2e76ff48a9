// Package metrics exposes Prometheus instruments for the funnel bot.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/funnel-bot/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot updates handled labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot handlers in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of funnel state transitions",
		},
		[]string{"from", "to"},
	)
	funnelEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_events_total",
			Help: "Funnel events labeled by event and outcome",
		},
		[]string{"event", "outcome"},
	)
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Outbound messages labeled by kind and status",
		},
		[]string{"kind", "status"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	rateLimitChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_checks_total",
			Help: "Rate limit decisions labeled by backend and result",
		},
		[]string{"backend", "result"},
	)
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served labeled by route and status code",
		},
		[]string{"route", "code"},
	)
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state per dependency: 0 closed, 1 open, 2 half open",
		},
		[]string{"name"},
	)
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retries_total",
			Help: "Repeated calls to remote dependencies",
		},
		[]string{"name"},
	)
	trackedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnel_tracked_users",
			Help: "Number of users the funnel store holds",
		},
	)
	usersByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "funnel_users_by_status",
			Help: "Number of users per funnel status",
		},
		[]string{"status"},
	)
	pendingTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnel_pending_retention_timers",
			Help: "Number of live retention timers",
		},
	)
)

var trackedStatuses = []state.Status{
	state.StatusStarted,
	state.StatusAwaitingCompletion,
	state.StatusCompleted,
}

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	botCommandsTotal.WithLabelValues(orUnknown(command), orUnknown(status)).Inc()
	commandDurationSeconds.WithLabelValues(orUnknown(command)).Observe(duration.Seconds())
}

// RecordStateTransition tracks funnel transitions.
func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordFunnelEvent counts a start, completion or retention outcome.
func RecordFunnelEvent(event, outcome string) {
	funnelEventsTotal.WithLabelValues(orUnknown(event), orUnknown(outcome)).Inc()
}

// RecordNotification counts an outbound message attempt.
func RecordNotification(kind, status string) {
	notificationsTotal.WithLabelValues(orUnknown(kind), orUnknown(status)).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(orUnknown(errType), orUnknown(severity)).Inc()
}

// RecordRateLimit counts a limiter decision.
func RecordRateLimit(backend string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	rateLimitChecksTotal.WithLabelValues(orUnknown(backend), result).Inc()
}

// RecordHTTPRequest counts a served HTTP request.
func RecordHTTPRequest(route, code string) {
	httpRequestsTotal.WithLabelValues(orUnknown(route), orUnknown(code)).Inc()
}

// SetBreakerState publishes the state of the named circuit breaker.
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(orUnknown(name)).Set(float64(state))
}

// RecordRetry counts one repeated call to the named dependency.
func RecordRetry(name string) {
	retriesTotal.WithLabelValues(orUnknown(name)).Inc()
}

// SetUsersByStatus updates the gauge for the given status.
func SetUsersByStatus(status string, count int) {
	usersByStatus.WithLabelValues(orUnknown(status)).Set(float64(count))
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// Snapshotter is the part of the funnel store the collector reads.
type Snapshotter interface {
	Snapshot() []state.UserFunnelState
}

// StateCollector periodically gathers funnel status counts and emits gauge metrics.
type StateCollector struct {
	store    Snapshotter
	interval time.Duration
}

// NewStateCollector builds a metrics collector bound to the provided store.
func NewStateCollector(store Snapshotter, interval time.Duration) *StateCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StateCollector{store: store, interval: interval}
}

// Run polls the store every interval until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.Collect()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect refreshes the gauges once.
func (c *StateCollector) Collect() {
	entries := c.store.Snapshot()
	trackedUsers.Set(float64(len(entries)))

	counts := make(map[string]int, len(trackedStatuses))
	timers := 0
	for _, entry := range entries {
		counts[string(entry.Status)]++
		if entry.PendingTimer != nil {
			timers++
		}
	}
	pendingTimers.Set(float64(timers))

	usersByStatus.Reset()
	for _, tracked := range trackedStatuses {
		SetUsersByStatus(string(tracked), counts[string(tracked)])
	}
}

package remito

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of the module. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	cacheRequests  *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	auditDropped   prometheus.Counter
	auditFailed    prometheus.Counter
	auditRecorded  *prometheus.CounterVec
	transitions    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remito",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remito",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries evicted because the cache was full.",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remito",
			Subsystem: "audit",
			Name:      "dropped_total",
			Help:      "Audit events dropped because the queue was full or closed.",
		}),
		auditFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remito",
			Subsystem: "audit",
			Name:      "failed_total",
			Help:      "Audit events the sink failed to write.",
		}),
		auditRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remito",
			Subsystem: "audit",
			Name:      "recorded_total",
			Help:      "Audit events written, by action.",
		}, []string{"action"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remito",
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Status transitions by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.cacheRequests,
			m.cacheEvictions,
			m.auditDropped,
			m.auditFailed,
			m.auditRecorded,
			m.transitions,
		)
	}
	return m
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

func (m *Metrics) CacheEviction() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}

func (m *Metrics) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

func (m *Metrics) AuditFailed() {
	if m == nil {
		return
	}
	m.auditFailed.Inc()
}

func (m *Metrics) AuditRecorded(action string) {
	if m == nil {
		return
	}
	m.auditRecorded.WithLabelValues(action).Inc()
}

// Transition counts a workflow outcome: the error text code, or "ok".
func (m *Metrics) Transition(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	m.transitions.WithLabelValues(outcome).Inc()
}

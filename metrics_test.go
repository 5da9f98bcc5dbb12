package remito_test

import (
	"errors"
	"testing"

	remito "github.com/goliatone/go-remito"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *remito.Metrics
	assert.NotPanics(t, func() {
		m.CacheHit()
		m.CacheMiss()
		m.CacheEviction()
		m.AuditDropped()
		m.AuditFailed()
		m.AuditRecorded("LOGIN")
		m.Transition(nil)
	})
}

func TestMetricsTransitionOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := remito.NewMetrics(reg)

	m.Transition(nil)
	m.Transition(nil)
	m.Transition(remito.ErrInvalidStatus)
	m.Transition(remito.ErrForbidden)
	m.Transition(errors.New("boom"))

	name := "remito_workflow_transitions_total"
	assert.Equal(t, float64(2), counterValue(t, reg, name, "outcome", "ok"))
	assert.Equal(t, float64(1), counterValue(t, reg, name, "outcome", remito.TextCodeInvalidStatus))
	assert.Equal(t, float64(1), counterValue(t, reg, name, "outcome", remito.TextCodeForbidden))
	assert.Equal(t, float64(1), counterValue(t, reg, name, "outcome", "error"))
}

func TestMetricsCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := remito.NewMetrics(reg)

	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.CacheEviction()

	assert.Equal(t, float64(2), counterValue(t, reg, "remito_cache_requests_total", "result", "hit"))
	assert.Equal(t, float64(1), counterValue(t, reg, "remito_cache_requests_total", "result", "miss"))
	assert.Equal(t, float64(1), counterValue(t, reg, "remito_cache_evictions_total", "", ""))
}

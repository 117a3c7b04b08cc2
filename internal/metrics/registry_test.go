package metrics

import (
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, r *Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m.GetLabel(), labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if want[p.GetName()] != p.GetValue() {
			return false
		}
	}
	return true
}

func TestRegistryCounters(t *testing.T) {
	r := NewRegistry()

	r.ObserveSimulation("tier", nil, 2*time.Millisecond)
	r.ObserveSimulation("tier", nil, time.Millisecond)
	r.ObserveSimulation("segment", errors.New("boom"), time.Millisecond)
	r.ObserveFallback(3)
	r.ObserveFallback(3)
	r.ObserveExclusion("constraint")
	r.ObserveLagFallback("breaker_open")
	r.ObserveRanking()

	assert.Equal(t, 2.0, counterValue(t, r, "pricecast_simulations_total", map[string]string{"path": "tier", "result": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, r, "pricecast_simulations_total", map[string]string{"path": "segment", "result": "error"}))
	assert.Equal(t, 2.0, counterValue(t, r, "pricecast_elasticity_fallbacks_total", map[string]string{"level": "3"}))
	assert.Equal(t, 1.0, counterValue(t, r, "pricecast_ranking_exclusions_total", map[string]string{"reason": "constraint"}))
	assert.Equal(t, 1.0, counterValue(t, r, "pricecast_lag_backend_fallbacks_total", map[string]string{"reason": "breaker_open"}))
	assert.Equal(t, 1.0, counterValue(t, r, "pricecast_rankings_total", map[string]string{}))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.ObserveFallback(2)
	assert.Equal(t, 1.0, counterValue(t, a, "pricecast_elasticity_fallbacks_total", map[string]string{"level": "2"}))
	assert.Equal(t, 0.0, counterValue(t, b, "pricecast_elasticity_fallbacks_total", map[string]string{"level": "2"}))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveSimulation("tier", nil, time.Millisecond)
		r.ObserveFallback(4)
		r.ObserveExclusion("x")
		r.ObserveLagFallback("x")
		r.ObserveRanking()
	})
	samples, err := r.Samples()
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestSamples(t *testing.T) {
	r := NewRegistry()
	r.ObserveSimulation("tier", nil, time.Millisecond)
	r.ObserveFallback(2)

	samples, err := r.Samples()
	require.NoError(t, err)

	byName := map[string]Sample{}
	for _, s := range samples {
		byName[s.Name+"{"+s.Labels+"}"] = s
	}
	assert.Equal(t, 1.0, byName["pricecast_simulation_duration_seconds{path=tier}"].Value)
	assert.Equal(t, 1.0, byName["pricecast_elasticity_fallbacks_total{level=2}"].Value)
	assert.Equal(t, 1.0, byName["pricecast_simulations_total{path=tier,result=ok}"].Value)
}

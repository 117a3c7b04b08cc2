// Package metrics instruments the forecasting core with Prometheus
// collectors. Every Registry owns its own prometheus.Registry; nothing is
// registered on the global default.
package metrics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds all Prometheus metrics for pricecast. A nil *Registry is
// valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	// Simulation metrics
	Simulations        *prometheus.CounterVec
	SimulationDuration *prometheus.HistogramVec

	// Segmentation engine
	ElasticityFallbacks *prometheus.CounterVec

	// Decision engine
	Rankings          prometheus.Counter
	RankingExclusions *prometheus.CounterVec

	// Churn backend
	LagBackendFallbacks *prometheus.CounterVec
}

// NewRegistry creates a registry with every pricecast collector registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_simulations_total",
				Help: "Total number of scenario simulations by path and result",
			},
			[]string{"path", "result"},
		),

		SimulationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricecast_simulation_duration_seconds",
				Help:    "Duration of a single scenario simulation in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"path"},
		),

		ElasticityFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_elasticity_fallbacks_total",
				Help: "Segment elasticity lookups resolved past the exact hit, by fallback level",
			},
			[]string{"level"},
		),

		Rankings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pricecast_rankings_total",
				Help: "Total number of ranking requests",
			},
		),

		RankingExclusions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_ranking_exclusions_total",
				Help: "Saved results dropped from ranking, by reason",
			},
			[]string{"reason"},
		),

		LagBackendFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_lag_backend_fallbacks_total",
				Help: "Churn backend calls served by the native model, by reason",
			},
			[]string{"reason"},
		),
	}

	r.registry.MustRegister(
		r.Simulations,
		r.SimulationDuration,
		r.ElasticityFallbacks,
		r.Rankings,
		r.RankingExclusions,
		r.LagBackendFallbacks,
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveSimulation records one simulation outcome and its latency.
func (r *Registry) ObserveSimulation(path string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.Simulations.WithLabelValues(path, result).Inc()
	r.SimulationDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// ObserveFallback counts a degraded elasticity lookup.
func (r *Registry) ObserveFallback(level int) {
	if r == nil {
		return
	}
	r.ElasticityFallbacks.WithLabelValues(strconv.Itoa(level)).Inc()
}

// ObserveRanking counts one ranking request.
func (r *Registry) ObserveRanking() {
	if r == nil {
		return
	}
	r.Rankings.Inc()
}

// ObserveExclusion counts a saved result dropped from a ranking.
func (r *Registry) ObserveExclusion(reason string) {
	if r == nil {
		return
	}
	r.RankingExclusions.WithLabelValues(reason).Inc()
}

// ObserveLagFallback counts a churn backend call answered by the native model.
func (r *Registry) ObserveLagFallback(reason string) {
	if r == nil {
		return
	}
	r.LagBackendFallbacks.WithLabelValues(reason).Inc()
}

// Sample is one gathered counter or histogram-count value.
type Sample struct {
	Name   string  `json:"name"`
	Labels string  `json:"labels,omitempty"`
	Value  float64 `json:"value"`
}

// Samples gathers every collector into a flat, sorted list. Histograms
// report their observation count.
func (r *Registry) Samples() ([]Sample, error) {
	families, err := r.Gatherer().Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			out = append(out, Sample{
				Name:   mf.GetName(),
				Labels: labelString(m.GetLabel()),
				Value:  sampleValue(mf.GetType(), m),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return 0
	}
}

func labelString(labels []*dto.LabelPair) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	return strings.Join(parts, ",")
}

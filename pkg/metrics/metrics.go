// Package metrics records generation runs for the node exporter textfile
// collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edp1096/lblmc/pkg/generator"
)

type Registry struct {
	registry *prometheus.Registry

	Unknowns        *prometheus.GaugeVec
	SourceSlots     *prometheus.GaugeVec
	Components      *prometheus.GaugeVec
	SolveTerms      *prometheus.GaugeVec
	PrunedTerms     *prometheus.GaugeVec
	GenerationTime  *prometheus.GaugeVec
	ModelsGenerated prometheus.Counter
}

func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)
	labels := []string{"model"}

	r.Unknowns = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lblmc_unknowns",
		Help: "Solution vector length of the generated solver",
	}, labels)
	r.SourceSlots = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lblmc_source_slots",
		Help: "Registered component source slots",
	}, labels)
	r.Components = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lblmc_components",
		Help: "Components stamped into the system",
	}, labels)
	r.SolveTerms = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lblmc_solve_terms",
		Help: "Multiply-accumulate terms emitted in the solve",
	}, labels)
	r.PrunedTerms = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lblmc_pruned_terms",
		Help: "Inverse entries dropped by the zero bound",
	}, labels)
	r.GenerationTime = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lblmc_generation_seconds",
		Help: "Time spent inverting and emitting the solver",
	}, labels)
	r.ModelsGenerated = f.NewCounter(prometheus.CounterOpts{
		Name: "lblmc_models_generated_total",
		Help: "Solvers generated in this run",
	})
	return r
}

// Observe records the stats of one emitted solver.
func (r *Registry) Observe(model string, s generator.Stats) {
	r.Unknowns.WithLabelValues(model).Set(float64(s.Unknowns))
	r.SourceSlots.WithLabelValues(model).Set(float64(s.Sources))
	r.Components.WithLabelValues(model).Set(float64(s.Components))
	r.SolveTerms.WithLabelValues(model).Set(float64(s.SolveTerms))
	r.PrunedTerms.WithLabelValues(model).Set(float64(s.PrunedTerms))
	r.GenerationTime.WithLabelValues(model).Set(s.Duration.Seconds())
	r.ModelsGenerated.Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// WriteFile writes every metric in text exposition format.
func (r *Registry) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookline_generations_total",
		Help: "Generation calls by style (hook, fit) and outcome status.",
	}, []string{"style", "status"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hookline_generation_duration_seconds",
		Help:    "Wall time of one streamed generation call.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 90},
	}, []string{"style"})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookline_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	TemplateSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookline_template_saves_total",
		Help: "Template save attempts by status (ok, invalid, error).",
	}, []string{"status"})

	TemplateLoadFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookline_template_load_fallbacks_total",
		Help: "Template loads that fell back to the built-in defaults.",
	})
)

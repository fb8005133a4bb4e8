package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cracklens"

// Collector records plan and step metrics.
type Collector struct {
	registry *prometheus.Registry

	plans        prometheus.Counter
	planFailures prometheus.Counter
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	inflight     prometheus.Gauge
}

// NewCollector creates a collector with its own registry. Passing a nil registry
// creates a fresh one.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		registry: reg,
		plans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Total number of executed plans",
		}),
		planFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_step_failures_total",
			Help:      "Total number of failed steps across plans",
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of executed steps",
		}, []string{"tool", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of step executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plans_in_flight",
			Help:      "Number of plans currently running",
		}),
	}
	reg.MustRegister(c.plans, c.planFailures, c.steps, c.stepDuration, c.inflight)
	return c
}

// Hooks returns lifecycle hooks that feed the collector.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPlanStart: func(ctx context.Context, e *domain.PlanEvent) {
			c.inflight.Inc()
		},
		OnPlanEnd: func(ctx context.Context, e *domain.PlanEvent) {
			c.inflight.Dec()
			c.plans.Inc()
			c.planFailures.Add(float64(e.Failures))
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			c.steps.WithLabelValues(e.ToolName, string(e.Status)).Inc()
			c.stepDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

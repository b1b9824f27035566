// Package metrics exposes Prometheus counters for qualification activity.
// It subscribes to domain events so the instrumented modules stay unaware
// of the metrics backend.
package metrics

import (
	"context"

	"leadrouting_backend/internal/events"
	apphttp "leadrouting_backend/internal/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

// Module collects qualification metrics and serves /metrics.
type Module struct {
	registry *prometheus.Registry

	qualifications *prometheus.CounterVec
	assignments    *prometheus.CounterVec
	enrollments    prometheus.Counter
	hotLeads       prometheus.Counter
	scoreHist      prometheus.Histogram
}

// New creates the metrics module with its own registry.
func New() *Module {
	m := &Module{
		registry: prometheus.NewRegistry(),
		qualifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_qualifications_total",
			Help: "Completed qualification passes by tier and action.",
		}, []string{"tier", "action"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_assignments_total",
			Help: "Lead assignments by mode.",
		}, []string{"mode"}),
		enrollments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nurture_enrollments_total",
			Help: "New nurture enrollments.",
		}),
		hotLeads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hot_leads_total",
			Help: "Leads that reached the PQL tier.",
		}),
		scoreHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lead_score",
			Help:    "Distribution of computed lead scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}

	m.registry.MustRegister(m.qualifications, m.assignments, m.enrollments, m.hotLeads, m.scoreHist)
	return m
}

// RegisterHandlers subscribes the module to domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadQualified{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadQualified)
		if !ok {
			return nil
		}
		m.qualifications.WithLabelValues(e.Tier, e.Action).Inc()
		m.scoreHist.Observe(float64(e.Score))
		return nil
	}))

	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadAssigned)
		if !ok {
			return nil
		}
		mode := "manual"
		if e.Auto {
			mode = "auto"
		}
		m.assignments.WithLabelValues(mode).Inc()
		return nil
	}))

	bus.Subscribe(events.NurtureEnrolled{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if _, ok := event.(events.NurtureEnrolled); !ok {
			return nil
		}
		m.enrollments.Inc()
		return nil
	}))

	bus.Subscribe(events.HotLeadDetected{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if _, ok := event.(events.HotLeadDetected); !ok {
			return nil
		}
		m.hotLeads.Inc()
		return nil
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "metrics"
}

// RegisterRoutes mounts the /metrics endpoint at the engine root, outside
// the authenticated API surface.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	ctx.Engine.GET("/metrics", gin.WrapH(handler))
}

var _ apphttp.Module = (*Module)(nil)

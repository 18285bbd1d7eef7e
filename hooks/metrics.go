package hooks

import (
	"context"
	"errors"
	"time"

	"github.com/aschepis/backscratcher/otk/customize"
	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// startKey is the annotation carrying the PreRequest timestamp to later phases.
	startKey = "metrics.start"
	// recordedKey marks an invocation already counted as a success, so a later
	// PostResponse abort is not counted again.
	recordedKey = "metrics.recorded"
)

// Invocation outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeAborted = "aborted"
)

// Metrics records invocation counts, durations and reasoning extraction in
// Prometheus collectors.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	reasoning   *prometheus.CounterVec
	tokens      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg, or with the
// default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "otk",
				Name:      "invocations_total",
				Help:      "Total number of model invocations by outcome",
			},
			[]string{"model", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "otk",
				Name:      "invocation_duration_seconds",
				Help:      "Duration of model invocations in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"model", "outcome"},
		),
		reasoning: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "otk",
				Name:      "reasoning_extracted_total",
				Help:      "Total number of responses with reasoning separated from the answer",
			},
			[]string{"model", "type"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "otk",
				Name:      "tokens_total",
				Help:      "Total tokens reported by the service",
			},
			[]string{"model", "direction"},
		),
	}

	for _, c := range []prometheus.Collector{m.invocations, m.duration, m.reasoning, m.tokens} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns the hooks that feed the collectors.
func (m *Metrics) Hooks() *customize.Hooks {
	return customize.NewHooks().
		PreRequest("metrics-start", func(ctx context.Context, hc *customize.HookContext) (customize.Outcome, error) {
			hc.Set(startKey, time.Now())
			return customize.Continue, nil
		}).
		PostResponse("metrics-record", func(ctx context.Context, hc *customize.HookContext) (customize.Outcome, error) {
			m.observe(hc, OutcomeSuccess)
			if hc.Processed.Extracted {
				m.reasoning.WithLabelValues(hc.Model, hc.Processed.Type.String()).Inc()
			}
			if hc.Response != nil && hc.Response.Usage != nil {
				m.tokens.WithLabelValues(hc.Model, "input").Add(float64(hc.Response.Usage.InputTokens))
				m.tokens.WithLabelValues(hc.Model, "output").Add(float64(hc.Response.Usage.OutputTokens))
			}
			return customize.Continue, nil
		}).
		OnError("metrics-error", func(ctx context.Context, hc *customize.HookContext) (customize.Outcome, error) {
			m.observe(hc, errorOutcome(hc.Err))
			return customize.Continue, nil
		})
}

func (m *Metrics) observe(hc *customize.HookContext, outcome string) {
	start := hc.StartedAt
	if v, ok := hc.Lookup(startKey); ok {
		if t, ok := v.(time.Time); ok {
			start = t
		}
	}
	m.invocations.WithLabelValues(hc.Model, outcome).Inc()
	m.duration.WithLabelValues(hc.Model, outcome).Observe(time.Since(start).Seconds())
}

func errorOutcome(err error) string {
	var abortErr *customize.AbortError
	switch {
	case errors.As(err, &abortErr):
		return OutcomeAborted
	case llm.IsTimeoutError(err), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

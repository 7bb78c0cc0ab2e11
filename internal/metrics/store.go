// Package metrics exposes agent and session metrics through a Prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"meal-planner-agent/internal/planner"
	"meal-planner-agent/internal/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session outcomes.
const (
	OutcomeThresholdMet  = "threshold_met"
	OutcomeMaxIterations = "max_iterations"
	OutcomeParseError    = "parse_error"
	OutcomeServiceError  = "service_error"
	OutcomeInvalid       = "invalid"
	OutcomeError         = "error"
)

// ExecutionMetric records metadata for a single agent execution.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store holds the collectors on its own registry, so several stores can
// live in one process (tests, for instance).
type Store struct {
	registry *prometheus.Registry

	tokens     *prometheus.CounterVec
	executions *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	sessions   *prometheus.CounterVec
	iterations prometheus.Histogram
	finalScore prometheus.Gauge
	criterion  *prometheus.GaugeVec
}

// NewStore creates a Store with Go runtime collectors registered.
func NewStore() *Store {
	s := &Store{
		registry: prometheus.NewRegistry(),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_planner_llm_tokens_total",
			Help: "Tokens consumed by agent calls",
		}, []string{"agent", "model", "kind"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_planner_agent_executions_total",
			Help: "Agent calls that returned a response",
		}, []string{"agent", "model"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meal_planner_agent_latency_seconds",
			Help:    "Latency of agent calls",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}, []string{"agent"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_planner_sessions_total",
			Help: "Planning sessions by outcome",
		}, []string{"outcome"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meal_planner_session_iterations",
			Help:    "Iterations used by successful sessions",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		}),
		finalScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meal_planner_last_final_score",
			Help: "Overall score of the most recent successful session",
		}),
		criterion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meal_planner_last_criterion_score",
			Help: "Per-criterion score of the most recent successful session",
		}, []string{"criterion"}),
	}

	s.registry.MustRegister(
		s.tokens, s.executions, s.latency,
		s.sessions, s.iterations, s.finalScore, s.criterion,
		collectors.NewGoCollector(),
	)
	return s
}

// Registry exposes the underlying registry.
func (s *Store) Registry() *prometheus.Registry { return s.registry }

// Handler serves the registry in the Prometheus text format.
func (s *Store) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Record adds one agent execution.
func (s *Store) Record(m ExecutionMetric) {
	model := m.Model
	if model == "" {
		model = "unknown"
	}
	s.executions.WithLabelValues(m.AgentName, model).Inc()
	s.tokens.WithLabelValues(m.AgentName, model, "prompt").Add(float64(m.PromptTokens))
	s.tokens.WithLabelValues(m.AgentName, model, "completion").Add(float64(m.CompletionTokens))
	s.latency.WithLabelValues(m.AgentName).Observe(float64(m.LatencyMS) / 1000)
}

// RecordMeta records metrics directly from shared.AgentMeta. Metas without
// any usage (calls that never reached the model) are skipped.
func (s *Store) RecordMeta(meta shared.AgentMeta) {
	if meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0 {
		return
	}
	s.Record(MapUsage(meta.AgentName, meta.Usage, meta.Latency))
}

// RecordSession records the outcome of a planning session. res may be nil
// when err is set. Token usage is recorded per call through RecordMeta.
func (s *Store) RecordSession(res *planner.Result, err error) {
	if err != nil {
		s.sessions.WithLabelValues(Outcome(err)).Inc()
		return
	}

	s.sessions.WithLabelValues(string(res.StopReason)).Inc()
	s.iterations.Observe(float64(len(res.History)))
	s.finalScore.Set(res.FinalScore())
	if len(res.History) > 0 {
		for _, c := range res.History[len(res.History)-1].Evaluation.Scores() {
			s.criterion.WithLabelValues(string(c.Criterion)).Set(c.Score)
		}
	}
}

// Outcome classifies a session error into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return ""
	case shared.IsResponseParse(err):
		return OutcomeParseError
	case shared.IsService(err):
		return OutcomeServiceError
	case shared.IsValidation(err):
		return OutcomeInvalid
	}
	return OutcomeError
}

// MapUsage helper to convert shared.TokenUsage to ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}

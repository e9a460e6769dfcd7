package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the runtime. All metrics
// live under the strand_ namespace and register with the default
// registry, so they surface on /metrics via promhttp.
type Metrics struct {
	// LLMRequestDuration measures provider call latency in seconds.
	// Labels: provider, model, status (success|error)
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokens tracks token consumption.
	// Labels: provider, model, direction (input|output)
	LLMTokens *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool, status (success|error)
	ToolExecutionDuration *prometheus.HistogramVec

	// AgentIterations observes loop iterations per Process call.
	AgentIterations prometheus.Histogram

	// HTTPRequestDuration measures HTTP request latency.
	// Labels: method, path, status
	HTTPRequestDuration *prometheus.HistogramVec

	// ActiveSessions gauges the live session count.
	ActiveSessions prometheus.Gauge

	// Errors counts failures by component and kind.
	// Labels: component (agent|provider|tool|server|store), kind
	Errors *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors. Call once at startup;
// promauto panics on duplicate registration.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strand_llm_request_duration_seconds",
				Help:    "Duration of LLM provider requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strand_llm_tokens_total",
				Help: "Tokens consumed by provider, model, and direction",
			},
			[]string{"provider", "model", "direction"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strand_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool", "status"},
		),

		AgentIterations: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "strand_agent_iterations",
				Help:    "Agent loop iterations per processed input",
				Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20},
			},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strand_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"method", "path", "status"},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "strand_active_sessions",
				Help: "Number of live agent sessions",
			},
		),

		Errors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strand_errors_total",
				Help: "Errors by component and kind",
			},
			[]string{"component", "kind"},
		),
	}
}

// ObserveLLMRequest records one provider call.
func (m *Metrics) ObserveLLMRequest(provider, model string, seconds float64, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.LLMRequestDuration.WithLabelValues(provider, model, status).Observe(seconds)
}

// AddTokens records token consumption for one call.
func (m *Metrics) AddTokens(provider, model string, input, output int) {
	if m == nil {
		return
	}
	if input > 0 {
		m.LLMTokens.WithLabelValues(provider, model, "input").Add(float64(input))
	}
	if output > 0 {
		m.LLMTokens.WithLabelValues(provider, model, "output").Add(float64(output))
	}
}

// ObserveToolExecution records one tool call.
func (m *Metrics) ObserveToolExecution(tool string, seconds float64, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.ToolExecutionDuration.WithLabelValues(tool, status).Observe(seconds)
}

// ObserveIterations records the iteration count of one Process call.
func (m *Metrics) ObserveIterations(n int) {
	if m == nil {
		return
	}
	m.AgentIterations.Observe(float64(n))
}

// ObserveHTTPRequest records one HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(seconds)
}

// SetActiveSessions sets the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// CountError records a failure.
func (m *Metrics) CountError(component, kind string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component, kind).Inc()
}

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiTokensTotal,
		aiCostMicro,
		aiCallsLatencyMs,
		aiRetries,
		aiBudgetBlocks,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per stage/model.",
		},
		[]string{"stage", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per stage/model.",
		},
		[]string{"stage", "model"},
	)

	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Sum of total tokens per stage/model.",
		},
		[]string{"stage", "model"},
	)

	aiCostMicro = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_cost_micro",
			Help: "Total micro-dollars spent per stage/model.",
		},
		[]string{"stage", "model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"stage", "model", "success"},
	)

	aiRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_call_retries_total",
			Help: "Count of retried inference attempts per stage/model.",
		},
		[]string{"stage", "model"},
	)

	aiBudgetBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_budget_blocks_total",
			Help: "Count of pre-flight cost-ceiling blocks per stage/model.",
		},
		[]string{"stage", "model"},
	)
)

func ObserveCallUsage(stage, model string, tokensIn, tokensOut, tokensTotal int, costMicro int64, latencyMs int, success bool) {
	lbl := []string{norm(stage), norm(model)}
	aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	aiTokensTotal.WithLabelValues(lbl...).Add(float64(tokensTotal))
	aiCostMicro.WithLabelValues(lbl...).Add(float64(costMicro))
	aiCallsLatencyMs.WithLabelValues(norm(stage), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncRetry(stage, model string) {
	aiRetries.WithLabelValues(norm(stage), norm(model)).Inc()
}

func BudgetBlocked(stage, model string) {
	aiBudgetBlocks.WithLabelValues(norm(stage), norm(model)).Inc()
}

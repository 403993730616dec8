// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eleven-am/conformer/internal/domain"
)

var (
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conformer_requests_total",
		Help: "Processing requests by outcome",
	}, []string{"outcome"})

	StreamDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conformer_stream_decisions_total",
		Help: "Per-stream decisions by stream kind and action",
	}, []string{"kind", "action"})

	ToolRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conformer_tool_runs_total",
		Help: "External tool invocations by tool and result",
	}, []string{"tool", "result"})

	Arbitrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conformer_arbitration_total",
		Help: "Pick-smallest comparisons by stream kind and winner",
	}, []string{"kind", "winner"})

	EncodeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conformer_encode_seconds",
		Help:    "Wall time of encoding tool runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	})
)

var outcomes = []struct {
	kind  error
	label string
}{
	{domain.ErrCancelled, "cancelled"},
	{domain.ErrNoChange, "no_change"},
	{domain.ErrUnsupportedExtension, "rejected"},
	{domain.ErrUnsupportedSourceFormat, "rejected"},
	{domain.ErrUnsupportedSourceCodec, "rejected"},
	{domain.ErrSourceValidation, "invalid"},
	{domain.ErrNoMediaStreams, "invalid"},
	{domain.ErrAudioRemovalInfeasible, "infeasible"},
	{domain.ErrResizeInfeasible, "infeasible"},
	{domain.ErrProbe, "probe_failed"},
	{domain.ErrEncode, "encode_failed"},
}

// Outcome maps a request error onto the requests_total outcome label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.kind) {
			return o.label
		}
	}
	return "error"
}

// Package metrics provides Prometheus metrics for the chat and indexing paths.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
)

const namespace = "pdfchat"

var (
	// ChatRequests counts answered and failed chat turns.
	// Labels: mode (general, document), outcome (ok, no_credential, timeout, model_error, bad_request, busy, rate_limited, error)
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of chat turns by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// ModelLatency tracks LLM call duration.
	// Labels: provider
	ModelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Duration of LLM completion calls in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"provider"},
	)

	// IndexBuilds counts index builds.
	// Labels: result (success, error)
	IndexBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "builds_total",
			Help:      "Total number of similarity index builds",
		},
		[]string{"result"},
	)

	// IndexBuildDuration tracks how long index builds take.
	IndexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "build_duration_seconds",
			Help:      "Duration of similarity index builds in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ActiveSessions is the number of users with a registry entry.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of users holding an in-memory index or conversation",
		},
	)

	// Uploads counts document uploads.
	// Labels: result (success, rejected, extraction_failed, index_failed, error)
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "uploads_total",
			Help:      "Total number of document uploads by result",
		},
		[]string{"result"},
	)
)

// ObserveIndexBuild records the outcome and duration of one build.
func ObserveIndexBuild(err error, elapsed time.Duration) {
	IndexBuildDuration.Observe(elapsed.Seconds())
	IndexBuilds.WithLabelValues(result(err)).Inc()
}

// ObserveChat records one chat turn.
func ObserveChat(mode string, err error) {
	ChatRequests.WithLabelValues(mode, Outcome(err)).Inc()
}

// ObserveUpload records one upload attempt.
func ObserveUpload(err error) {
	label := "success"
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrBadRequest):
		label = "rejected"
	case errors.Is(err, apperr.ErrExtraction):
		label = "extraction_failed"
	case errors.Is(err, apperr.ErrIndexBuild):
		label = "index_failed"
	default:
		label = "error"
	}
	Uploads.WithLabelValues(label).Inc()
}

// Outcome maps a chat error onto a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNoCredential):
		return "no_credential"
	case errors.Is(err, apperr.ErrModelTimeout):
		return "timeout"
	case errors.Is(err, apperr.ErrModelInvocation):
		return "model_error"
	case errors.Is(err, apperr.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, apperr.ErrBusy):
		return "busy"
	case errors.Is(err, apperr.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

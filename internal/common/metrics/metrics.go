package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_resolutions_total",
			Help: "Total resolutions by source layer and intent",
		},
		[]string{"layer", "intent"},
	)

	AuthorizationDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_authorization_denials_total",
			Help: "Total authorization denials by intent",
		},
		[]string{"intent"},
	)

	SlotsMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_slots_missing_total",
			Help: "Total required slots flagged missing, by intent and slot",
		},
		[]string{"intent", "slot"},
	)

	FallbackDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "assistant_fallback_duration_seconds",
			Help: "Duration of external fallback calls in seconds",
		},
	)

	FallbackFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_fallback_failures_total",
			Help: "Total external fallback failures by kind",
		},
		[]string{"kind"},
	)

	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_resolution_duration_seconds",
			Help: "Duration of a full resolution call in seconds",
		},
		[]string{"outcome"},
	)
)

// Package metrics declares the Prometheus collectors shared by the player,
// history outbox, mood detector and catalog fallback chain. Collectors are
// registered on the default registry and served by promhttp in cmd/web.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlayerCommands counts control operations by name.
	PlayerCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodmusic",
		Subsystem: "player",
		Name:      "commands_total",
		Help:      "Player control operations by command.",
	}, []string{"command"})

	// HistoryJobs counts outbox outcomes: recorded, failed or dropped.
	HistoryJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodmusic",
		Subsystem: "history",
		Name:      "jobs_total",
		Help:      "History outbox jobs by outcome.",
	}, []string{"outcome"})

	// MoodDetections counts detection attempts by outcome: success,
	// fallback, cooldown or manual.
	MoodDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodmusic",
		Subsystem: "mood",
		Name:      "detections_total",
		Help:      "Mood detections by outcome.",
	}, []string{"outcome"})

	// CaptureDuration observes how long a full capture pipeline run takes.
	CaptureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "moodmusic",
		Subsystem: "mood",
		Name:      "capture_seconds",
		Help:      "Wall time of capture pipeline runs.",
		Buckets:   []float64{1, 2, 5, 10, 12, 15, 20, 30},
	})

	// CatalogFallbacks counts catalog sources skipped by the fallback chain.
	CatalogFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodmusic",
		Subsystem: "catalog",
		Name:      "fallbacks_total",
		Help:      "Catalog sources skipped because they failed or returned nothing.",
	}, []string{"source"})
)

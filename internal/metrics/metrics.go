package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Room view metrics
	SnapshotsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "askroom_snapshots_published_total",
			Help: "Total room snapshots published to observers",
		},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "askroom_active_subscriptions",
			Help: "Room views currently subscribed to the store",
		},
	)

	StoreReloadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "askroom_store_reload_failures_total",
			Help: "Subscription reloads that could not read the store",
		},
	)

	// Business metrics
	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askroom_moderation_actions_total",
			Help: "Total moderation mutations",
		},
		[]string{"operation", "result"},
	)

	JoinAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askroom_join_attempts_total",
			Help: "Total room join validations",
		},
		[]string{"result"}, // "ok", "empty_code", "not_found", "closed", "unavailable"
	)

	QuestionsAsked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "askroom_questions_asked_total",
			Help: "Total questions submitted",
		},
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "askroom_rooms_created_total",
			Help: "Total rooms created",
		},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StatusChangesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "club_events_status_changes_total",
		Help: "Status-change deliveries received, by source and outcome",
	}, []string{"source", "outcome"})

	RewardsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "club_events_rewards_granted_total",
		Help: "Newly created trophies and badges",
	}, []string{"kind"})

	RewardFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "club_events_reward_failures_total",
		Help: "Per-participant reward steps that failed",
	})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "club_events_notification_failures_total",
		Help: "Notifications that could not be delivered",
	})

	BracketWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "club_events_bracket_writes_total",
		Help: "Match fields written by link and repair passes",
	}, []string{"field"})

	BracketIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "club_events_bracket_issues_total",
		Help: "Integrity issues and structural defects found in brackets",
	}, []string{"type"})

	ClubUpdateConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "club_events_club_update_conflicts_total",
		Help: "Optimistic club updates that lost a race and were retried",
	})

	RewardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "club_events_reward_duration_seconds",
		Help:    "Time spent rewarding one completed event",
		Buckets: prometheus.DefBuckets,
	})
)

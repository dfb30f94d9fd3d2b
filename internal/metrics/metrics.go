// Package metrics holds the Prometheus collectors for matching runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fare"

// Run results used as the "result" label of MatchingRuns.
const (
	ResultGrouped  = "grouped"
	ResultNoGroups = "no_groups"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

var (
	MatchingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "matching_runs_total",
		Help:      "Matching runs by outcome.",
	}, []string{"result"})

	GroupsFormed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "groups_formed_total",
		Help:      "Dinner groups persisted.",
	}, []string{"dinner_type"})

	SignupsGrouped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_grouped_total",
		Help:      "Signups placed into a persisted group.",
	}, []string{"dinner_type"})

	SignupsRemainder = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_remainder_total",
		Help:      "Signups left pending because too few remained to form a group.",
	}, []string{"dinner_type"})

	GroupPersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "group_persist_failures_total",
		Help:      "Groups that failed to persist and were skipped.",
	})

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_failures_total",
		Help:      "GroupFormed events that could not be published.",
	})

	MatchingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "matching_duration_seconds",
		Help:      "Wall time of a single time-slot matching run.",
		Buckets:   prometheus.DefBuckets,
	})
)

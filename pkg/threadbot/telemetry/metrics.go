// Package telemetry provides Prometheus metrics for threadbot.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Summary publish results.
const (
	ResultPublished = "published"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

var (
	once sync.Once

	// SummaryRefreshes counts digest refreshes by result.
	SummaryRefreshes *prometheus.CounterVec

	// SummaryDuration observes render+publish time in seconds.
	SummaryDuration prometheus.Observer

	// StaleDigestsDeleted counts prior digest messages removed.
	StaleDigestsDeleted prometheus.Counter

	// ThreadEvents counts thread lifecycle events that touched a tracked channel.
	ThreadEvents *prometheus.CounterVec

	// Commands counts handled chat commands by name and outcome.
	Commands *prometheus.CounterVec

	// ConfigSaveFailures counts failed tracker persists.
	ConfigSaveFailures prometheus.Counter
)

// Init registers metrics with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		SummaryRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "threadbot_summary_refreshes_total",
			Help: "Digest refreshes by result",
		}, []string{"result"})
		SummaryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "threadbot_summary_refresh_duration_seconds",
			Help:    "Digest render and publish duration",
			Buckets: prometheus.DefBuckets,
		})
		StaleDigestsDeleted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "threadbot_stale_digests_deleted_total",
			Help: "Prior digest messages deleted before posting a new one",
		})
		ThreadEvents = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "threadbot_thread_events_total",
			Help: "Thread lifecycle events in tracked channels",
		}, []string{"event"})
		Commands = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "threadbot_commands_total",
			Help: "Chat commands by name and outcome",
		}, []string{"command", "outcome"})
		ConfigSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
			Name: "threadbot_config_save_failures_total",
			Help: "Tracker configuration persists that failed",
		})
	})
}

// RecordRefresh counts one digest refresh and its duration.
func RecordRefresh(result string, seconds float64) {
	if SummaryRefreshes == nil {
		return
	}
	SummaryRefreshes.WithLabelValues(result).Inc()
	if result != ResultSkipped {
		SummaryDuration.Observe(seconds)
	}
}

// RecordStaleDeleted adds n deleted digests.
func RecordStaleDeleted(n int) {
	if StaleDigestsDeleted != nil && n > 0 {
		StaleDigestsDeleted.Add(float64(n))
	}
}

// RecordThreadEvent counts a thread event.
func RecordThreadEvent(event string) {
	if ThreadEvents != nil {
		ThreadEvents.WithLabelValues(event).Inc()
	}
}

// RecordCommand counts a chat command.
func RecordCommand(command, outcome string) {
	if Commands != nil {
		Commands.WithLabelValues(command, outcome).Inc()
	}
}

// RecordSaveFailure counts a failed config persist.
func RecordSaveFailure() {
	if ConfigSaveFailures != nil {
		ConfigSaveFailures.Inc()
	}
}

// Package metrics exposes Prometheus collectors for the sequence
// console: github.com/prometheus/client_golang is listed in the
// teacher's go.mod but never imported anywhere in its source, so this
// package is the first real use of it, built the idiomatic way
// (promauto-registered collectors, served over promhttp).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PulsesApplied counts apply_pulse calls across all models, labeled
	// by container variant.
	PulsesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sycomore_pulses_applied_total",
		Help: "Number of RF pulses applied, by EPG container variant.",
	}, []string{"variant"})

	// IntervalsApplied counts apply_time_interval calls.
	IntervalsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sycomore_intervals_applied_total",
		Help: "Number of time intervals applied, by EPG container variant.",
	}, []string{"variant"})

	// StateSetSize records the populated-state count after each
	// interval, for the console's discrete and regular variants.
	StateSetSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sycomore_state_set_size",
		Help:    "Number of populated configuration states after an interval.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"variant"})

	// PruningEvents counts intervals, run with a pruning threshold, after
	// which the populated-state count is lower than before the interval.
	// Pruning passes that leave the count unchanged or higher are not
	// counted.
	PruningEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sycomore_pruning_events_total",
		Help: "Number of thresholded intervals that reduced the populated-state count.",
	}, []string{"variant"})

	// PrunedStates adds, for each interval counted by PruningEvents, the
	// net drop in populated states across that interval. States that the
	// interval's shift added in the same step offset the drop, so this is
	// a lower bound on the number of states removed by pruning.
	PrunedStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sycomore_pruned_states_total",
		Help: "Total number of configuration states dropped by pruning.",
	}, []string{"variant"})

	// SequenceRunDuration records wall-clock time spent executing a
	// submitted sequence through the console.
	SequenceRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sycomore_sequence_run_duration_seconds",
		Help:    "Wall-clock duration of a sequence run request.",
		Buckets: prometheus.DefBuckets,
	}, []string{"variant"})

	// EventsApplied counts the standalone relaxation/diffusion/shift/
	// off_resonance event kinds a submitted sequence can use instead of
	// the combined "interval" event, labeled by variant and kind.
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sycomore_events_applied_total",
		Help: "Number of standalone (non-interval) sequence events applied, by variant and kind.",
	}, []string{"variant", "kind"})
)

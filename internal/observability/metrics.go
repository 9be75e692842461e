// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/literature-scout/pkg/types"
)

// Metrics holds the pipeline counters. A nil *Metrics is valid and records
// nothing, so packages under test can skip it.
type Metrics struct {
	registry *prometheus.Registry

	// SourceSearches counts adapter invocations by source.
	SourceSearches *prometheus.CounterVec

	// SourceFailures counts adapter invocations that ended in a warning.
	SourceFailures *prometheus.CounterVec

	// SourceRecords counts records returned by source.
	SourceRecords *prometheus.CounterVec

	// SourceDuration observes adapter latency in seconds.
	SourceDuration *prometheus.HistogramVec

	// DuplicatesRemoved counts records collapsed by deduplication.
	DuplicatesRemoved prometheus.Counter

	// CandidatesScored counts candidates by clamped score.
	CandidatesScored *prometheus.CounterVec

	// CandidatesEligible counts candidates that passed the relevance gate.
	CandidatesEligible prometheus.Counter

	// ItemsSaved counts items created in the reference store.
	ItemsSaved prometheus.Counter

	// ItemsSkipped counts eligible items not written, by reason.
	ItemsSkipped *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics on a private registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SourceSearches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_total",
			Help:      "Adapter invocations by source.",
		}, []string{"source"}),
		SourceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Adapter invocations that failed, by source.",
		}, []string{"source"}),
		SourceRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_records_total",
			Help:      "Records returned, by source.",
		}, []string{"source"}),
		SourceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Adapter latency in seconds, by source.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		DuplicatesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Records collapsed by deduplication.",
		}),
		CandidatesScored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_scored_total",
			Help:      "Annotated candidates by clamped score.",
		}, []string{"score"}),
		CandidatesEligible: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_eligible_total",
			Help:      "Candidates at or above the relevance threshold.",
		}),
		ItemsSaved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_saved_total",
			Help:      "Items created in the reference store.",
		}),
		ItemsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_skipped_total",
			Help:      "Eligible items not written, by reason.",
		}, []string{"reason"}),
	}
}

// RecordSourceSearch records one adapter invocation.
func (m *Metrics) RecordSourceSearch(source types.SourceID, records int, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	label := string(source)
	m.SourceSearches.WithLabelValues(label).Inc()
	m.SourceDuration.WithLabelValues(label).Observe(d.Seconds())
	if failed {
		m.SourceFailures.WithLabelValues(label).Inc()
		return
	}
	m.SourceRecords.WithLabelValues(label).Add(float64(records))
}

// RecordDuplicates adds n collapsed records.
func (m *Metrics) RecordDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DuplicatesRemoved.Add(float64(n))
}

// RecordScore records one annotated candidate.
func (m *Metrics) RecordScore(score int, eligible bool) {
	if m == nil {
		return
	}
	m.CandidatesScored.WithLabelValues(fmt.Sprintf("%d", score)).Inc()
	if eligible {
		m.CandidatesEligible.Inc()
	}
}

// RecordSaved records one created item.
func (m *Metrics) RecordSaved() {
	if m == nil {
		return
	}
	m.ItemsSaved.Inc()
}

// RecordSkipped records an eligible item that was not written.
func (m *Metrics) RecordSkipped(reason string) {
	if m == nil {
		return
	}
	m.ItemsSkipped.WithLabelValues(reason).Inc()
}

// WriteTextfile dumps the current values in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// Package metrics provides Prometheus metrics for imagemeta.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	// Extraction
	SegmentsTotal       *prometheus.CounterVec
	SegmentParseSeconds *prometheus.HistogramVec
	ExtractionsTotal    *prometheus.CounterVec

	// Reconstruction
	ReconstructionsTotal *prometheus.CounterVec
	ReconstructedBytes   prometheus.Histogram

	// Versioning
	VersionsTotal  *prometheus.CounterVec
	MergesTotal    *prometheus.CounterVec
	MergeConflicts prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg uses a
// fresh registry so several instances can coexist in one process.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		SegmentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imagemeta_segments_total",
				Help: "Metadata segments extracted, by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		SegmentParseSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imagemeta_segment_parse_seconds",
				Help:    "Time spent parsing one metadata segment",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"type"},
		),
		ExtractionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imagemeta_extractions_total",
				Help: "Files scanned for metadata, by container format and status",
			},
			[]string{"format", "status"},
		),
		ReconstructionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imagemeta_reconstructions_total",
				Help: "Files rebuilt from preserved metadata, by format and status",
			},
			[]string{"format", "status"},
		),
		ReconstructedBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "imagemeta_reconstructed_bytes",
				Help:    "Size of rebuilt files",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		VersionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imagemeta_versions_total",
				Help: "Versions stored, by representation (full or delta)",
			},
			[]string{"representation"},
		),
		MergesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imagemeta_merges_total",
				Help: "Three-way merges, by status",
			},
			[]string{"status"},
		),
		MergeConflicts: f.NewCounter(
			prometheus.CounterOpts{
				Name: "imagemeta_merge_conflicts_total",
				Help: "Property conflicts found during merges",
			},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordSegment records one segment parse. outcome is "parsed", "raw" or
// "failed".
func (m *Metrics) RecordSegment(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SegmentsTotal.WithLabelValues(kind, outcome).Inc()
	m.SegmentParseSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordExtraction records a finished extraction.
func (m *Metrics) RecordExtraction(format string, err error) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(format, status(err)).Inc()
}

// RecordReconstruction records a rebuilt file.
func (m *Metrics) RecordReconstruction(format string, size int, err error) {
	if m == nil {
		return
	}
	m.ReconstructionsTotal.WithLabelValues(format, status(err)).Inc()
	if err == nil {
		m.ReconstructedBytes.Observe(float64(size))
	}
}

// RecordVersion records a stored version.
func (m *Metrics) RecordVersion(representation string) {
	if m == nil {
		return
	}
	m.VersionsTotal.WithLabelValues(representation).Inc()
}

// RecordMerge records a merge and the conflicts it found.
func (m *Metrics) RecordMerge(conflicts int, err error) {
	if m == nil {
		return
	}
	m.MergesTotal.WithLabelValues(status(err)).Inc()
	m.MergeConflicts.Add(float64(conflicts))
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upload metrics
	VideosUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_uploads_total",
			Help: "Total number of accepted video uploads",
		},
		[]string{"sport_type"},
	)

	UploadRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_upload_rejections_total",
			Help: "Total number of rejected uploads",
		},
		[]string{"reason"}, // "validation", "storage"
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_upload_bytes_total",
			Help: "Total bytes of accepted video uploads",
		},
	)

	// Analysis metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_analyses_total",
			Help: "Total number of analysis jobs by type and outcome",
		},
		[]string{"analysis_type", "outcome"}, // "succeeded", "failed", "timeout", "cancelled", "conflict"
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_analysis_duration_seconds",
			Help:    "Duration of analysis jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s .. ~3.4m
		},
		[]string{"analysis_type"},
	)

	StaleSlotsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_analysis_stale_slots_released_total",
			Help: "Total number of orphaned running job slots reset by the recovery sweep",
		},
	)

	// Recommendation metrics
	RecommendationScans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_recommendation_scans_total",
			Help: "Total number of recommendation catalog scans",
		},
	)

	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_recommendation_candidates",
			Help:    "Number of candidate videos considered per recommendation scan",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

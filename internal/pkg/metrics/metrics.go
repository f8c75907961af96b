// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FileUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatter",
			Name:      "file_uploads_total",
			Help:      "Content versions created, by outcome.",
		},
		[]string{"outcome"},
	)

	FileDeletes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatter",
			Name:      "file_deletes_total",
			Help:      "Content documents deleted, by outcome.",
		},
		[]string{"outcome"},
	)

	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chatter",
			Name:      "file_upload_bytes",
			Help:      "Size of uploaded version data.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	MentionSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatter",
			Name:      "mention_searches_total",
			Help:      "User searches served, by whether they matched.",
		},
		[]string{"result"},
	)

	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatter",
			Name:      "notifications_created_total",
			Help:      "Notifications written, by type.",
		},
		[]string{"type"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatter",
			Name:      "http_request_duration_seconds",
			Help:      "API latency, by route and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	StatusCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatter",
			Name:      "notification_status_cache_total",
			Help:      "Notification status lookups, by cache result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(FileUploads, FileDeletes, UploadBytes, MentionSearches, NotificationsCreated, StatusCacheLookups, RequestDuration)
}

// Outcome labels a counter by error
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler exposes the default registry for gin
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PublishTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailtosocial_publish_ticks_total",
		Help: "Total publishing ticks",
	})
	TickErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailtosocial_tick_errors_total",
		Help: "Ticks that could not list due posts",
	})
	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mailtosocial_tick_duration_seconds",
		Help:    "Publishing tick duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	PostsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailtosocial_posts_published_total",
		Help: "Scheduled posts published",
	}, []string{"platform"})
	PostsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailtosocial_posts_failed_total",
		Help: "Scheduled posts marked failed",
	}, []string{"platform"})
	MediaDegraded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailtosocial_media_degraded_total",
		Help: "Posts published text-only because media could not be attached",
	}, []string{"platform"})
)

func init() {
	prometheus.MustRegister(PublishTicks, TickErrors, TickDuration, PostsPublished, PostsFailed, MediaDegraded)
}

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

func ObserveTickDuration(start time.Time) {
	TickDuration.Observe(time.Since(start).Seconds())
}

func IncPublished(platform string) { PostsPublished.WithLabelValues(platform).Inc() }

func IncFailed(platform string) { PostsFailed.WithLabelValues(platform).Inc() }

func IncMediaDegraded(platform string) { MediaDegraded.WithLabelValues(platform).Inc() }

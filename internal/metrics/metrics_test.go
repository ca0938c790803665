package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersByPlatform(t *testing.T) {
	before := testutil.ToFloat64(PostsPublished.WithLabelValues("twitter"))
	IncPublished("twitter")
	IncFailed("linkedin")
	IncMediaDegraded("linkedin")

	require.Equal(t, before+1, testutil.ToFloat64(PostsPublished.WithLabelValues("twitter")))
	require.GreaterOrEqual(t, testutil.ToFloat64(PostsFailed.WithLabelValues("linkedin")), 1.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(MediaDegraded.WithLabelValues("linkedin")), 1.0)
}

func TestMetricsExposure(t *testing.T) {
	PublishTicks.Inc()
	TickErrors.Inc()
	ObserveTickDuration(time.Now().Add(-1500 * time.Millisecond))
	IncPublished("twitter")

	app := fiber.New()
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	for _, m := range []string{
		"mailtosocial_publish_ticks_total",
		"mailtosocial_tick_errors_total",
		"mailtosocial_tick_duration_seconds",
		"mailtosocial_posts_published_total",
	} {
		require.Contains(t, string(body), m)
	}
}

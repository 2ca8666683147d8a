package echoapi

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_metrics(t *testing.T) {
	app := setup(t)
	_, _, student := app.users(t)

	app.do(http.MethodGet, "/", "", nil)
	app.do(http.MethodGet, "/v1/courses", "", nil)
	app.do(http.MethodGet, "/v1/courses/lol", "", nil)
	app.do(http.MethodGet, "/v1/users", app.token(t, student), nil)

	srv := app.srv.(*server)
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.requests.WithLabelValues(http.MethodGet, "/v1/courses", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.requests.WithLabelValues(http.MethodGet, "/v1/courses/:id", "404")))
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.requests.WithLabelValues(http.MethodGet, "/v1/users", "403")))

	rec := app.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
}

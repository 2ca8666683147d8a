package echoapi

import (
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	enrollments *prometheus.CounterVec
	attempts    *prometheus.CounterVec
	submissions prometheus.Counter
}

func newMetrics(reg *prometheus.Registry) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of the HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		enrollments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_enrollments_total",
			Help: "Number of enrollment status changes, by new status.",
		}, []string{"status"}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_quiz_attempts_total",
			Help: "Number of graded quiz attempts.",
		}, []string{"passed"}),
		submissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "lms_submissions_total",
			Help: "Number of assignment submissions.",
		}),
	}
}

// middleware records the count and duration of the requests, labelled by route.
func (m *metrics) middleware(translator ut.Translator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				status, _ = resolveError(err, translator)
			}
			method := ctx.Request().Method
			path := ctx.Path()
			m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			m.duration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *metrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *metrics) enrollmentChanged(status string) {
	m.enrollments.WithLabelValues(status).Inc()
}

func (m *metrics) quizAttempted(passed bool) {
	m.attempts.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

func (m *metrics) submitted() {
	m.submissions.Inc()
}

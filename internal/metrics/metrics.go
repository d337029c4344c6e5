package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sample outcomes recorded by the acquisition layer.
const (
	OutcomeOK       = "ok"
	OutcomeMissing  = "missing"
	OutcomeFallback = "fallback"
)

var (
	samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rainfield_samples_total",
			Help: "Point samples by outcome.",
		},
		[]string{"outcome"},
	)

	fieldDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rainfield_field_duration_seconds",
			Help:    "Time to acquire and interpolate one rain field.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
	)

	fieldMaxValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rainfield_field_max_value",
			Help: "Largest interpolated value of the most recent field.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rainfield_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rainfield_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(samplesTotal)
	prometheus.MustRegister(fieldDurationSeconds)
	prometheus.MustRegister(fieldMaxValue)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSample counts one point sample.
func ObserveSample(outcome string) {
	samplesTotal.WithLabelValues(outcome).Inc()
}

// ObserveField records the build time and peak value of a finished field.
func ObserveField(d time.Duration, maxValue float64) {
	fieldDurationSeconds.Observe(d.Seconds())
	fieldMaxValue.Set(maxValue)
}

// Middleware records request count and duration for each request.
// The route pattern is used as the path label to keep cardinality bounded.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		code := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}

		path := c.Route().Path
		method := c.Method()
		httpRequestsTotal.WithLabelValues(path, method, strconv.Itoa(code)).Inc()
		httpDurationSeconds.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
		return err
	}
}

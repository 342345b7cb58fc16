package middleware

import (
	"strconv"
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})

	// ActiveWebSockets is the number of open realtime sockets.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resort_active_websockets",
		Help: "Number of open realtime WebSocket connections",
	})

	// RateLimitRejections counts requests refused by RateLimit.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"resource"})

	// APIErrors counts error responses by status code.
	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_api_errors_total",
		Help: "API responses with a 4xx or 5xx status",
	}, []string{"status"})
)

var (
	promOnce sync.Once
	promInst *fiberprometheus.FiberPrometheus
)

// InitMetrics builds the Fiber Prometheus middleware for serviceName. The
// collectors live in the default registry, so only the first call registers.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInst = fiberprometheus.NewWith(serviceName, "resort", "http")
	})
	return promInst
}

// MetricsMiddleware records request metrics and error status counts.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	var promHandler fiber.Handler
	if prom != nil {
		promHandler = prom.Middleware
	}
	return func(c *fiber.Ctx) error {
		var err error
		if promHandler != nil {
			err = promHandler(c)
		} else {
			err = c.Next()
		}
		if status := c.Response().StatusCode(); status >= 400 {
			APIErrors.WithLabelValues(strconv.Itoa(status)).Inc()
		}
		return err
	}
}

package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workhive_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ActiveWebSockets is the gauge of currently open chat WebSocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workhive_active_websockets",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workhive_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// MessagesDelivered counts chat messages persisted, by delivery outcome.
	MessagesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workhive_chat_messages_delivered_total",
		Help: "Total number of chat messages delivered",
	}, []string{"outcome"})

	// PartitionRepairs counts singleton message copies repaired by the reconciler.
	PartitionRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workhive_chat_partition_repairs_total",
		Help: "Total number of singleton message copies repaired by the reconciler",
	})
)

var (
	promOnce     sync.Once
	promInstance *fiberprometheus.FiberPrometheus
)

// InitMetrics creates the Prometheus middleware for HTTP request metrics.
// The underlying collectors register with the default registry exactly once,
// so repeated server construction (as in tests) is safe.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInstance = fiberprometheus.New(serviceName)
	})
	return promInstance
}

// MetricsMiddleware returns the Fiber handler that records request metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}

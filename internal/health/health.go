package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	kafkago "github.com/segmentio/kafka-go"
)

const checkTimeout = 2 * time.Second

// Check reports whether one dependency is usable.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// RedisCheck pings the rate limiter backend.
func RedisCheck(client *redis.Client) Check {
	return Check{
		Name: "redis",
		Fn: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// KafkaCheck dials the first reachable broker.
func KafkaCheck(brokers []string) Check {
	return Check{
		Name: "kafka",
		Fn: func(ctx context.Context) error {
			var lastErr error
			for _, broker := range brokers {
				conn, err := kafkago.DialContext(ctx, "tcp", broker)
				if err != nil {
					lastErr = err
					continue
				}
				return conn.Close()
			}
			return lastErr
		},
	}
}

// Handler serves liveness and readiness endpoints.
type Handler struct {
	service string
	checks  []Check
}

// NewHandler creates a Handler that runs checks on readiness requests.
func NewHandler(service string, checks ...Check) *Handler {
	return &Handler{service: service, checks: checks}
}

// RegisterRoutes registers /health and /health/ready.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Live)
	r.GET("/health/ready", h.Ready)
}

// Live reports that the process is serving.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready runs every check and reports 503 if any fails.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Fn(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[check.Name] = err.Error()
			continue
		}
		results[check.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "service": h.service, "checks": results})
}

package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"zakatledger/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
	// HeaderRequestID carries the request ID in and out of the service.
	HeaderRequestID = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	metrics *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds
}

// NewMiddleware creates a new trace middleware
func NewMiddleware() *Middleware {
	return &Middleware{metrics: &Metrics{}}
}

// Handler returns gin middleware that assigns a request ID, attaches a
// request-scoped logger to the context and logs completion.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		c.Header(HeaderRequestID, requestID)

		logger := log.Default(log.ComponentHTTP).With(log.FieldRequestID, requestID)
		ctx := WithRequestID(c.Request.Context(), requestID)
		ctx = log.WithLogger(ctx, logger)
		c.Request = c.Request.WithContext(ctx)

		atomic.AddInt64(&m.metrics.TotalRequests, 1)

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		atomic.StoreInt64(&m.metrics.AverageResponseTime, duration.Microseconds())

		// Use appropriate log level based on status code
		level := slog.LevelInfo
		if status >= 400 && status < 500 {
			level = slog.LevelWarn
		} else if status >= 500 {
			level = slog.LevelError
		}

		fields := log.NewFields().
			WithHTTP(c.Request.Method, c.Request.URL.Path, status, duration.Milliseconds()).
			With(log.FieldClientIP, c.ClientIP())
		if len(c.Errors) > 0 {
			fields = fields.With(log.FieldError, c.Errors.Last().Error())
		}
		logger.LogContext(ctx, level, "HTTP request completed", fields.ToSlice()...)
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// WithRequestID stores a request ID on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		AverageResponseTime: atomic.LoadInt64(&m.metrics.AverageResponseTime),
	}
}

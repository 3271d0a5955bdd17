package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"zakatledger/internal/log"
)

var suspiciousRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "zakatledger_http_suspicious_requests_total",
	Help: "Requests matching a known probing pattern, by action taken.",
}, []string{"action"})

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	suspiciousAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// Detector flags requests that look like probing rather than API use.
type Detector struct {
	// Block rejects suspicious requests with 400 instead of only counting them.
	Block bool
}

func NewDetector(block bool) *Detector {
	return &Detector{Block: block}
}

// IsSuspicious analyzes request patterns for potential threats
func (d *Detector) IsSuspicious(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return true
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return true
		}
	}

	for _, method := range unusualMethods {
		if r.Method == method {
			return true
		}
	}

	if len(r.URL.String()) > 2048 {
		return true
	}

	// More than 5 proxy hops is suspicious
	if xff := r.Header.Get("X-Forwarded-For"); strings.Count(xff, ",") > 5 {
		return true
	}
	return false
}

// Handler counts suspicious requests and optionally rejects them.
func (d *Detector) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !d.IsSuspicious(c.Request) {
			c.Next()
			return
		}

		action := "logged"
		if d.Block {
			action = "blocked"
		}
		suspiciousRequests.WithLabelValues(action).Inc()
		log.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), "Suspicious request",
			log.FieldClientIP, c.ClientIP(),
			log.FieldMethod, c.Request.Method,
			log.FieldPath, c.Request.URL.Path,
			"action", action)

		if d.Block {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "request rejected", "kind": "validation_error"})
			return
		}
		c.Next()
	}
}

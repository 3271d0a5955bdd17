package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"zakatledger/internal/core"
	"zakatledger/internal/log"
)

// HeaderUserID carries the authenticated user id set by the upstream gateway.
const HeaderUserID = "X-User-ID"

// actorMiddleware copies the upstream user id onto the request context.
// Requests without one proceed; mutations then fail with an auth error.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := sanitizeInput(c.GetHeader(HeaderUserID)); id != "" && len(id) <= 128 {
			ctx := core.WithActor(c.Request.Context(), id)
			logger := log.FromContext(ctx).With(log.FieldActor, id)
			c.Request = c.Request.WithContext(log.WithLogger(ctx, logger))
		}
		c.Next()
	}
}

// sourceParam builds a source reference from the :kind and :id path params.
func sourceParam(c *gin.Context) (core.SourceRef, error) {
	kind, err := core.ParseSourceKind(c.Param("kind"))
	if err != nil {
		return core.SourceRef{}, core.Validation("http.source", err)
	}
	src := core.SourceRef{Kind: kind, ID: sanitizeInput(c.Param("id"))}
	if err := src.Validate(); err != nil {
		return core.SourceRef{}, core.Validation("http.source", err)
	}
	return src, nil
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

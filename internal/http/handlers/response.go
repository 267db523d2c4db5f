// Package handlers provides the HTTP handlers of the pen-pal API.
//
// This file defines the shared response helpers. Every error leaves through
// fail (or failErr for service errors) so that the envelope shape, the
// request id echo and the error-code metric label stay uniform.
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "creature not found"
//	}
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fantasy-letters-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"creature not found"`
}

// fail aborts the request with a structured error. Server errors (>=500)
// are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	respond(c, status, code, msg, nil)
}

// Fail is the exported variant of fail for the router's NoRoute/NoMethod
// handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func respond(c *gin.Context, status int, code, msg string, cause error) {
	c.Set(middleware.ErrorCodeKey, code)

	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg)
		if cause != nil {
			ev = ev.Err(cause)
		}
		ev.Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// notModified sets a weak ETag built from kind, scope, count and the latest
// modification time, and reports whether the client's If-None-Match already
// matches it. On a match the 304 has been written.
func notModified(c *gin.Context, kind, scope string, count int64, latest *time.Time) bool {
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, scope, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

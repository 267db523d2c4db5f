// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides correlation IDs, the access logger and panic recovery.
// Place them in this order:
//
//  1. RequestID()
//  2. Logger(opts)
//  3. Recovery()
//
// so that panics and errors carry the correlation ID. Logger also attaches a
// request-scoped zerolog.Logger to the request context; services log through
// zerolog.Ctx(ctx) and inherit request_id and user_id from it.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
	// ErrorCodeKey is the Gin context key for the machine-readable error code
	// of a failed request. Handlers set it; Logger and Metrics read it.
	ErrorCodeKey = "error.code"
)

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused; otherwise a UUIDv4 is generated. The
// ID is echoed in the response header and stored under "requestID".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes one structured access log line per request with the query
// string and request headers scrubbed by opts. Bodies are never logged.
//
// Level is error for 5xx or when Gin collected errors, warn for 4xx, info
// otherwise. The webhook and health routes can be demoted to debug with
// opts.QuietPaths.
func Logger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts)
	quiet := make(map[string]struct{}, len(opts.QuietPaths))
	for _, p := range opts.QuietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set("logger", &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		ev := l.With().
			Str("user_id", c.GetString(UserIDKey)).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", rd.value(c.Request.UserAgent())).
			Str("query", truncate(rd.value(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Str("error_code", c.GetString(ErrorCodeKey)).
			Interface("headers", rd.headers(c.Request.Header)).
			Logger()

		_, isQuiet := quiet[path]
		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		case isQuiet:
			ev.Debug().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery converts panics into a JSON 500 with the request ID and logs the
// stack. Nothing is written when the handler already started a response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", asString(rid)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header(requestIDHeader, asString(rid))
					abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// Logger() is not installed.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to max bytes and appends an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

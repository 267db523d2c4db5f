// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on unsafe methods and marks
// requests that replay an already completed operation. Handlers decide how
// to serve a replay; the rate limiter lets replays through for free.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying a client-chosen key
// that stays stable across retries of one logical operation.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IdempotencyScope returns the scope the key was checked against.
func IdempotencyScope(c *gin.Context) string {
	return c.GetString(ctxKeyIdemScope)
}

// IsReplay reports whether the lookup found a completed operation for this
// caller, scope and key.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Scope names the operation a key belongs to. The default is the route
	// pattern plus the :id parameter, e.g. "/conversations/:id/letters#<id>".
	Scope func(*gin.Context) string
	// Now is the lookup clock; nil means time.Now.
	Now func() time.Time
}

// IdempotencyLookup reports whether a still-valid completed result exists for
// (userID, scope, key). TTL enforcement belongs to the implementation.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header on POST, PUT,
// PATCH and DELETE and stashes key and scope for handlers. A malformed key
// gets 400. Lookups need an authenticated caller, so install this after
// Authenticate; lookup errors are logged and treated as "no replay".
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}
	scopeFn := opts.Scope
	if scopeFn == nil {
		scopeFn = defaultIdemScope
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !unsafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}

		scope := scopeFn(c)
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if uid := UserID(c); lookup != nil && uid != "" {
			exists, err := lookup(c.Request.Context(), uid, scope, key, now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

func defaultIdemScope(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	if id := c.Param("id"); id != "" {
		return path + "#" + id
	}
	return path
}

func unsafeMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

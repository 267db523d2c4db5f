package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Gin context keys written by Authenticate.
const (
	UserIDKey    = "userID"
	UserEmailKey = "userEmail"
	UserRoleKey  = "userRole"
)

// Identity headers.
const (
	HeaderUserID     = "X-User-ID"
	HeaderAdminToken = "X-Admin-Token"
)

// AuthOptions configures Authenticate.
type AuthOptions struct {
	// JWTSecret verifies HS256 bearer tokens (Supabase-style: sub, email, role).
	JWTSecret string
	// AllowDevHeader trusts X-User-ID when no bearer token is sent. Local use only.
	AllowDevHeader bool
	// Optional lets requests without any identity through anonymously. A
	// bearer token that fails verification is still rejected.
	Optional bool
}

// Authenticate resolves the caller from an HS256 bearer token, or from the
// X-User-ID header when AllowDevHeader is set, and stores the identity in
// the Gin context. Requests without a usable identity get 401.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	secret := []byte(opts.JWTSecret)
	return func(c *gin.Context) {
		raw, hasBearer := bearerToken(c.GetHeader("Authorization"))

		switch {
		case hasBearer && len(secret) > 0:
			claims, err := parseToken(raw, secret)
			if err != nil {
				zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("bearer token rejected")
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			setIdentity(c, claims.Subject, claims.Email, claims.Role)
		case !hasBearer && opts.AllowDevHeader && strings.TrimSpace(c.GetHeader(HeaderUserID)) != "":
			setIdentity(c, strings.TrimSpace(c.GetHeader(HeaderUserID)), "", "")
		case opts.Optional:
		default:
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireAdmin admits requests carrying the configured X-Admin-Token, or an
// authenticated caller whose token role is "admin". An empty token disables
// the header path.
func RequireAdmin(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if got := c.GetHeader(HeaderAdminToken); len(want) > 0 && got != "" &&
			subtle.ConstantTimeCompare([]byte(got), want) == 1 {
			c.Next()
			return
		}
		if c.GetString(UserRoleKey) == "admin" {
			c.Next()
			return
		}
		abortJSON(c, http.StatusForbidden, "forbidden", "administrator access required")
	}
}

// UserID returns the authenticated caller's id, or "".
func UserID(c *gin.Context) string { return c.GetString(UserIDKey) }

// UserEmail returns the caller's email claim, or "".
func UserEmail(c *gin.Context) string { return c.GetString(UserEmailKey) }

// Claims are the identity claims read from bearer tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func parseToken(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}
	if !tok.Valid {
		return nil, errors.New("jwt invalid")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("jwt has no subject")
	}
	return claims, nil
}

func bearerToken(h string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(h), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// setIdentity records the caller in the Gin context and enriches the
// request-scoped logger with the user id.
func setIdentity(c *gin.Context, id, email, role string) {
	c.Set(UserIDKey, id)
	c.Set(UserEmailKey, email)
	c.Set(UserRoleKey, role)

	ctx := c.Request.Context()
	l := zerolog.Ctx(ctx).With().Str("user_id", id).Logger()
	c.Request = c.Request.WithContext(l.WithContext(ctx))
}

// abortJSON writes the shared error body shape from inside middleware.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.Set(ErrorCodeKey, code)
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}

package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// RedactOptions configures Logger's scrubbing.
type RedactOptions struct {
	// MaskHeaders are replaced with "[REDACTED]" in addition to the built-in
	// set (Authorization, Cookie, Set-Cookie, Stripe-Signature, X-Admin-Token).
	MaskHeaders []string
	// QuietPaths are route patterns whose successful requests log at debug.
	QuietPaths []string
}

// redactor scrubs emails, phone numbers and UUIDs from free-form values and
// masks sensitive headers. Children's identifiers and parents' emails must
// not reach the logs.
type redactor struct {
	mask map[string]struct{}
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so UUID hex never matches.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
	// Stripe checkout session ids ride in redirect query strings.
	sessionRE = regexp.MustCompile(`\bcs_(?:test|live)_[A-Za-z0-9]+\b`)
)

func newRedactor(opts RedactOptions) redactor {
	mask := map[string]struct{}{
		"authorization":    {},
		"cookie":           {},
		"set-cookie":       {},
		"stripe-signature": {},
		"x-admin-token":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}
	return redactor{mask: mask}
}

// value scrubs s. UUIDs go first so the loose phone pattern cannot eat
// their digit groups.
func (r redactor) value(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = sessionRE.ReplaceAllString(s, "[REDACTED:session]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func (r redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.mask[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.value(strings.Join(vv, ", "))
	}
	return out
}

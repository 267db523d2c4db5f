package middleware

import (
	"net/http"
	"testing"
)

func TestRedactor_Value(t *testing.T) {
	r := newRedactor(RedactOptions{})
	cases := map[string]string{
		"":                                        "",
		"hello world":                             "hello world",
		"id=4c1f3b0e-1d2e-4f5a-9b8c-7d6e5f4a3b2c": "id=[REDACTED:id]",
		"from parent@example.com":                 "from [REDACTED:email]",
		"session_id=cs_test_a1B2c3":               "session_id=[REDACTED:session]",
		"call 555-123-4567":                       "call [REDACTED:phone]",
		"page=2&page_size=50":                     "page=2&page_size=50",
	}
	for in, want := range cases {
		if got := r.value(in); got != want {
			t.Fatalf("value(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestRedactor_Headers(t *testing.T) {
	r := newRedactor(RedactOptions{MaskHeaders: []string{" X-Api-Key ", ""}})
	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	h.Set("Stripe-Signature", "t=1,v1=deadbeef")
	h.Set("X-Api-Key", "k")
	h.Set("X-Parent", "mum@example.com")
	h.Add("Accept", "application/json")
	h.Add("Accept", "text/plain")

	got := r.headers(h)
	for _, k := range []string{"Authorization", "Stripe-Signature", "X-Api-Key"} {
		if got[k] != "[REDACTED]" {
			t.Fatalf("%s = %q; want masked", k, got[k])
		}
	}
	if got["X-Parent"] != "[REDACTED:email]" {
		t.Fatalf("X-Parent = %q", got["X-Parent"])
	}
	if got["Accept"] != "application/json, text/plain" {
		t.Fatalf("Accept = %q", got["Accept"])
	}
}

// Package utils provides small helpers shared by the HTTP and service
// layers. Nothing here knows about the domain.
package utils

import "strconv"

// AtoiDefault parses s as a decimal int, returning def when s is empty or
// malformed.
//
//	utils.AtoiDefault("42", 0) // 42
//	utils.AtoiDefault("x", 5)  // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page is a validated (page, size) pair.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows preceding this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// PageFrom parses raw page and size strings. Page defaults to 1; size
// defaults to def and is clamped to [1, max].
func PageFrom(rawPage, rawSize string, def, max int) Page {
	p := Page{Number: AtoiDefault(rawPage, 1), Size: AtoiDefault(rawSize, def)}
	if p.Number < 1 {
		p.Number = 1
	}
	p.Size = Clamp(p.Size, 1, max)
	return p
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TotalPages returns how many pages of size hold total rows.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

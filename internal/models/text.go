package models

import "unicode/utf8"

// Truncate cuts s to at most n bytes without splitting a multi-byte
// rune. Excerpts and previews carry normalized symbols (λ, θ, Δ), so a
// plain byte slice could leave invalid UTF-8 at the boundary.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

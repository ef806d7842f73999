// Package sanitize normalizes untrusted form input before it reaches
// email templates or logs.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	initOnce     sync.Once
)

func policy() *bluemonday.Policy {
	initOnce.Do(func() {
		// StrictPolicy strips all HTML and escapes the remaining
		// markup-sensitive characters.
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// Clean trims surrounding whitespace, collapses control characters,
// neutralizes HTML, and caps the result at maxLength runes. Clean is
// idempotent: feeding its output back in returns the same string.
// maxLength <= 0 means unlimited. Cleaned values contain no CR or LF,
// so they are safe to place in email header lines.
func Clean(raw string, maxLength int) string {
	s := policy().Sanitize(stripControl(strings.TrimSpace(raw)))
	s = strings.TrimSpace(s)
	if maxLength > 0 {
		s = truncate(s, maxLength)
	}
	return s
}

// stripControl collapses each run of ASCII control characters to a
// single space. A stray CR or LF in a value would otherwise terminate
// an email header line and smuggle in a new one.
func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			if !inRun {
				b.WriteRune(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// truncate cuts s at maxLength runes without leaving a partial HTML
// entity at the tail. A dangling "&amp" would re-expand on the next
// Clean pass and break idempotence.
func truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	runes = runes[:maxLength]
	for i := len(runes) - 1; i >= 0 && i >= len(runes)-9; i-- {
		if runes[i] == ';' {
			break
		}
		if runes[i] == '&' {
			runes = runes[:i]
			break
		}
	}
	return strings.TrimSpace(string(runes))
}

// Phone keeps digits, spaces, hyphens, parentheses, and a leading plus
// sign, dropping everything else.
func Phone(raw string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9', r == ' ', r == '-', r == '(', r == ')':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ZipCode strips non-digits and caps the result at five characters.
func ZipCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == 5 {
				break
			}
		}
	}
	return b.String()
}

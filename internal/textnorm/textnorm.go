// Package textnorm cleans raw OCR output before matching.
package textnorm

import (
	"strings"
	"unicode"
)

// Normalize collapses each whitespace run into one ASCII space and drops a
// single trailing space. Leading whitespace stays as one space.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSuffix(b.String(), " ")
}

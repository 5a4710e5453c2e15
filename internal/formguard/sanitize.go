package formguard

import (
	"strings"
	"unicode/utf8"
)

// MaxInputLength bounds any sanitised value, in characters.
const MaxInputLength = 5000

// Sanitize normalises free text from a contact submission: invalid UTF-8 and
// ASCII control characters (0x00-0x1F, 0x7F) are dropped, angle brackets are
// removed, surrounding whitespace is trimmed and the result is capped at
// MaxInputLength characters. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f || r == '<' || r == '>' {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())

	if utf8.RuneCountInString(out) > MaxInputLength {
		out = truncateRunes(out, MaxInputLength)
		// The cut can expose trailing whitespace.
		out = strings.TrimSpace(out)
	}
	return out
}

// SanitizeValue sanitises v when it is a string and yields "" for anything else.
func SanitizeValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Sanitize(s)
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

package dispatch

import (
	"net/url"
	"strings"
)

// NormalizeContacts splits raw input on newlines and keeps only the ASCII
// digits of each line. Lines with no digits are dropped; order is kept.
func NormalizeContacts(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if d := digitsOnly(strings.TrimSpace(line)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// BuildLink returns <base>/<digits>?text=<encoded message>.
func BuildLink(base, digits, message string) string {
	return strings.TrimRight(base, "/") + "/" + digits + "?text=" + EncodeComponent(message)
}

// componentUnescape undoes QueryEscape where encodeURIComponent differs:
// space is %20, and !'()* stay literal.
var componentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s for use as a single query value, byte
// for byte the way a browser's encodeURIComponent does.
func EncodeComponent(s string) string {
	return componentUnescape.Replace(url.QueryEscape(s))
}

package common

import (
	"regexp"
	"strings"

	"github.com/dtnitsch/downapk/pkg/mirror"
)

var markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// SanitizeURL performs basic cleanup on pasted release URLs.
// Removes whitespace, trailing punctuation and markdown link syntax.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// [text](url) -> url
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	trailingChars := []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}

	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// SplitTarget tells a pasted release page URL apart from a search term.
// URLs come back sanitized; anything else is returned trimmed.
func SplitTarget(raw string) (target string, isURL bool) {
	if cleaned := SanitizeURL(raw); mirror.IsPageURL(cleaned) {
		return cleaned, true
	}
	return strings.TrimSpace(raw), false
}

package insights

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxContentRunes bounds the body of each article sent to the model
const maxContentRunes = 3000

var stripPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// CleanHTML reduces an article body to plain text with collapsed whitespace
func CleanHTML(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}

// truncate cuts s to n runes and marks the cut with an ellipsis
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// extractJSON pulls the JSON payload out of a model answer that may wrap it in
// a code fence or surround it with prose
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "```"); start >= 0 {
		rest := content[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		content = strings.TrimSpace(rest)
	}

	open := strings.IndexAny(content, "{[")
	if open < 0 {
		return content
	}
	closer := "}"
	if content[open] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(content, closer); end > open {
		return content[open : end+1]
	}
	return content[open:]
}

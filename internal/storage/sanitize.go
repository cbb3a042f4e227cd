package storage

import "html"

// Caps for sanitized columns. Extraction consumers always see raw
// values; escaping and truncation happen only at the storage boundary
// so stored values are safe to render in a dashboard.
const (
	maxValueLength = 512
	maxURLLength   = 2048
)

func sanitizeValue(s string) string {
	return truncate(html.EscapeString(s), maxValueLength)
}

func sanitizeURL(s string) string {
	return truncate(html.EscapeString(s), maxURLLength)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeValue_EscapesHTML(t *testing.T) {
	t.Parallel()

	out := sanitizeValue(`<script>alert("x")</script>@firm.de`)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestSanitizeValue_CapsLength(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", maxValueLength+100)
	assert.Len(t, sanitizeValue(long), maxValueLength)
}

func TestSanitizeURL_CapsLength(t *testing.T) {
	t.Parallel()

	long := "https://firm.de/" + strings.Repeat("x", maxURLLength)
	assert.Len(t, sanitizeURL(long), maxURLLength)
}

package extractor

import (
	"html"
	"regexp"
	"strings"
)

// Obfuscation idioms resolved before email matching. Resolution happens
// before whitespace collapsing so multi-space variants like "a  at  b"
// still match.
var (
	atObfuscation  = regexp.MustCompile(`(?i)\s*(?:\[\s*at\s*\]|\(\s*at\s*\))\s*|\s+at\s+`)
	dotObfuscation = regexp.MustCompile(`(?i)\s*(?:\[\s*dot\s*\]|\(\s*dot\s*\))\s*|\s+dot\s+`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// NormalizeText prepares page text for email pattern matching: HTML
// entities are unescaped, obfuscation idioms ([at], (dot), spelled-out
// separators) are resolved, and whitespace runs collapse to one space.
// Idempotent: normalizing already-normalized text is a no-op.
func NormalizeText(text string) string {
	t := html.UnescapeString(text)
	t = atObfuscation.ReplaceAllString(t, "@")
	t = dotObfuscation.ReplaceAllString(t, ".")
	t = whitespaceRun.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

package extractor

import (
	"regexp"
	"strings"

	"flatwatch/internal/domain"
)

// emailPatterns run in order over normalized text. The deobfuscated
// pattern catches idioms the normalizer leaves intact, e.g. "user AT
// host DOT tld" glued to punctuation.
var emailPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"standard", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{"obfuscated", regexp.MustCompile(`(?i)[a-z0-9._%+\-]+\s*(?:\[at\]|\(at\))\s*[a-z0-9.\-]+\s*(?:\[dot\]|\(dot\))\s*[a-z]{2,}`)},
}

var (
	emailFormat   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	deobfuscateAt = strings.NewReplacer("[at]", "@", "(at)", "@", "[dot]", ".", "(dot)", ".")
)

// placeholderDomains are never real contact addresses.
var placeholderDomains = map[string]struct{}{
	"example.com": {},
	"example.org": {},
	"test.com":    {},
	"localhost":   {},
	"domain.com":  {},
	"email.com":   {},
}

// trackingLocalParts are reply-sink addresses with no human behind them.
var trackingLocalParts = map[string]struct{}{
	"noreply":    {},
	"no-reply":   {},
	"no_reply":   {},
	"donotreply": {},
}

var contactPageKeywords = []string{"contact", "kontakt", "impressum", "imprint"}

func isContactPage(pageURL string) bool {
	lower := strings.ToLower(pageURL)
	for _, kw := range contactPageKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsValidEmail reports whether a candidate has email shape and is not
// a placeholder or reply-sink address.
func IsValidEmail(email string) bool {
	if !emailFormat.MatchString(email) {
		return false
	}
	at := strings.LastIndex(email, "@")
	local := strings.ToLower(email[:at])
	dom := strings.ToLower(email[at+1:])
	if _, blocked := placeholderDomains[dom]; blocked {
		return false
	}
	if _, tracking := trackingLocalParts[local]; tracking {
		return false
	}
	return true
}

// ExtractEmails pulls email candidates out of page text. Matches on a
// contact-flavored URL get HIGH confidence, everything else MEDIUM.
// Duplicates within one page survive; global dedup happens later.
func ExtractEmails(text, sourceURL string) []*domain.Contact {
	normalized := NormalizeText(text)
	contactPage := isContactPage(sourceURL)

	var contacts []*domain.Contact
	for _, pattern := range emailPatterns {
		for _, match := range pattern.re.FindAllString(normalized, -1) {
			candidate := strings.TrimRight(deobfuscateAt.Replace(strings.ToLower(match)), ".,;:!?")
			candidate = whitespaceRun.ReplaceAllString(candidate, "")
			if !IsValidEmail(candidate) {
				continue
			}
			confidence := domain.ConfidenceMedium
			if contactPage {
				confidence = domain.ConfidenceHigh
			}
			c := domain.NewContact(domain.MethodEmail, candidate, confidence, sourceURL)
			c.Metadata["pattern"] = pattern.name
			contacts = append(contacts, c)
		}
	}
	return contacts
}

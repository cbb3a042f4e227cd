package extractor

import (
	"regexp"
	"strings"

	"flatwatch/internal/domain"
)

// phonePatterns are German-first and run over raw, non-normalized text;
// email normalization would mangle separator characters.
var phonePatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"de_country_code", regexp.MustCompile(`(?:\+49|0049)[\s\-/.()]*\d(?:[\s\-/.()]*\d){5,13}`)},
	{"de_local", regexp.MustCompile(`\b0\d{1,4}[\s\-/.]?\d(?:[\s\-/.]?\d){4,11}\b`)},
	{"digit_groups", regexp.MustCompile(`\b\d{3,5}[\s\-/.]\d{3,8}\b`)},
}

const minPhoneDigits = 7

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ExtractPhones pulls phone number candidates out of raw page text.
// Matches keeping a +49 prefix, or found on a contact-flavored URL, get
// HIGH confidence.
func ExtractPhones(text, sourceURL string) []*domain.Contact {
	contactPage := isContactPage(sourceURL)

	var contacts []*domain.Contact
	for _, pattern := range phonePatterns {
		for _, match := range pattern.re.FindAllString(text, -1) {
			normalized := domain.NormalizePhone(match)
			if digitCount(normalized) < minPhoneDigits {
				continue
			}
			confidence := domain.ConfidenceMedium
			if strings.HasPrefix(normalized, "+49") || contactPage {
				confidence = domain.ConfidenceHigh
			}
			c := domain.NewContact(domain.MethodPhone, normalized, confidence, sourceURL)
			c.Metadata["pattern"] = pattern.name
			c.Metadata["raw"] = strings.TrimSpace(match)
			contacts = append(contacts, c)
		}
	}
	return contacts
}

package validator

import (
	"regexp"

	"flatwatch/internal/domain"
)

// Phone checks are purely syntactic; there is no network probe for
// phone numbers, so a pattern match verifies immediately.
var phoneValidators = []struct {
	name string
	re   *regexp.Regexp
}{
	{"german", regexp.MustCompile(`^(?:\+49|0049|0)[1-9]\d{5,13}$`)},
	{"international", regexp.MustCompile(`^\+[1-9]\d{7,14}$`)},
	{"digits", regexp.MustCompile(`^\d{7,15}$`)},
}

// CheckPhone validates a normalized phone value and returns the pattern
// that matched.
func CheckPhone(value string) (string, error) {
	stripped := domain.NormalizePhone(value)
	if stripped == "" {
		return "", invalidf("empty phone number")
	}
	for _, v := range phoneValidators {
		if v.re.MatchString(stripped) {
			return v.name, nil
		}
	}
	return "", invalidf("unrecognized phone format %q", stripped)
}

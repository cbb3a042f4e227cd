package extractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flatwatch/internal/domain"
	"flatwatch/internal/extractor"
)

func TestNormalizeText_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"reach us at info [at] firm [dot] de today",
		"mail: kontakt(at)wohnung(dot)de",
		"spaced   out\n\ttext with info at firm dot de",
		"already@normal.de plain text",
		"Mieter &amp; Vermieter Service",
	}
	for _, in := range inputs {
		once := extractor.NormalizeText(in)
		twice := extractor.NormalizeText(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestIsValidEmail(t *testing.T) {
	t.Parallel()

	assert.False(t, extractor.IsValidEmail("user@example.com"), "placeholder domain")
	assert.False(t, extractor.IsValidEmail("someone@test.com"), "placeholder domain")
	assert.False(t, extractor.IsValidEmail("x@localhost"), "no tld")
	assert.False(t, extractor.IsValidEmail("not-an-email"))
	assert.False(t, extractor.IsValidEmail("noreply@firm.de"), "reply sink")
	assert.True(t, extractor.IsValidEmail("a@b.co"))
	assert.True(t, extractor.IsValidEmail("vermietung@hausverwaltung-mueller.de"))
}

func TestExtractEmails_Plain(t *testing.T) {
	t.Parallel()

	contacts := extractor.ExtractEmails("Write to info@firm.de or call us.", "https://firm.de/expose/1")
	if assert.Len(t, contacts, 1) {
		assert.Equal(t, "info@firm.de", contacts[0].Value)
		assert.Equal(t, domain.MethodEmail, contacts[0].Method)
		assert.Equal(t, domain.ConfidenceMedium, contacts[0].Confidence)
		assert.Equal(t, "standard", contacts[0].Metadata["pattern"])
	}
}

func TestExtractEmails_Obfuscated(t *testing.T) {
	t.Parallel()

	contacts := extractor.ExtractEmails("mail: hausmeister [at] firm [dot] de", "https://firm.de")
	if assert.NotEmpty(t, contacts) {
		assert.Equal(t, "hausmeister@firm.de", contacts[0].Value)
	}
}

func TestExtractEmails_ContactPageIsHighConfidence(t *testing.T) {
	t.Parallel()

	contacts := extractor.ExtractEmails("info@firm.de", "https://firm.de/impressum")
	if assert.Len(t, contacts, 1) {
		assert.Equal(t, domain.ConfidenceHigh, contacts[0].Confidence)
	}
}

func TestExtractEmails_TrailingPunctuationStripped(t *testing.T) {
	t.Parallel()

	contacts := extractor.ExtractEmails("Questions? info@firm.de.", "https://firm.de")
	if assert.Len(t, contacts, 1) {
		assert.Equal(t, "info@firm.de", contacts[0].Value)
	}
}

func TestExtractEmails_RejectsPlaceholders(t *testing.T) {
	t.Parallel()

	contacts := extractor.ExtractEmails("demo: user@example.com and noreply@firm.de", "https://firm.de")
	assert.Empty(t, contacts)
}

func TestExtractPhones_German(t *testing.T) {
	t.Parallel()

	contacts := extractor.ExtractPhones("Tel: +49 89 123456-7", "https://firm.de/expose/1")
	if assert.NotEmpty(t, contacts) {
		assert.Equal(t, "+49891234567", contacts[0].Value)
		assert.Equal(t, domain.ConfidenceHigh, contacts[0].Confidence, "+49 prefix is a strong signal")
	}
}

func TestExtractPhones_RejectsShortMatches(t *testing.T) {
	t.Parallel()

	contacts := extractor.ExtractPhones("Haus 12, Tel 012 345", "https://firm.de")
	for _, c := range contacts {
		assert.GreaterOrEqual(t, len(c.Value), 7)
	}
}

func TestExtractPhones_LocalNumberMediumConfidence(t *testing.T) {
	t.Parallel()

	contacts := extractor.ExtractPhones("Rufen Sie an: 089 1234567", "https://firm.de/expose/1")
	if assert.NotEmpty(t, contacts) {
		assert.Equal(t, "0891234567", contacts[0].Value)
		assert.Equal(t, domain.ConfidenceMedium, contacts[0].Confidence)
	}
}

func TestDeduplicateContacts_FirstOccurrenceWins(t *testing.T) {
	t.Parallel()

	contacts := []*domain.Contact{
		domain.NewContact(domain.MethodEmail, "a@b.com", domain.ConfidenceHigh, "https://x.de"),
		domain.NewContact(domain.MethodEmail, "A@B.COM", domain.ConfidenceMedium, "https://y.de"),
		domain.NewContact(domain.MethodEmail, "c@d.com", domain.ConfidenceHigh, "https://x.de"),
	}

	out := extractor.DeduplicateContacts(contacts)
	if assert.Len(t, out, 2) {
		assert.Equal(t, "a@b.com", out[0].Value)
		assert.Equal(t, domain.ConfidenceHigh, out[0].Confidence, "first occurrence keeps its confidence")
		assert.Equal(t, "c@d.com", out[1].Value)
	}
}

func TestDeduplicateContacts_MethodScoped(t *testing.T) {
	t.Parallel()

	contacts := []*domain.Contact{
		domain.NewContact(domain.MethodEmail, "a@b.com", domain.ConfidenceHigh, "https://x.de"),
		domain.NewContact(domain.MethodPage, "a@b.com", domain.ConfidenceLow, "https://x.de"),
	}
	assert.Len(t, extractor.DeduplicateContacts(contacts), 2)
}

package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"flatwatch/internal/domain"
)

var (
	formIntentKeywords = []string{"message", "nachricht", "subject", "betreff", "kontakt", "name", "email"}
	recognizedRequired = map[string]struct{}{"name": {}, "email": {}, "message": {}}
	csrfNamePattern    = regexp.MustCompile(`(?i)csrf|token`)
)

// ExtractForms finds contact forms on a page. A form qualifies when it
// shows explicit contact intent (keywords in its text or field names)
// or carries at least two required-looking fields. An empty action
// resolves to the source URL itself.
func ExtractForms(doc *goquery.Document, sourceURL string) []*domain.ContactForm {
	base, err := url.Parse(sourceURL)
	if err != nil {
		base = nil
	}
	contactPage := isContactPage(sourceURL)

	var forms []*domain.ContactForm
	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		fields, required, csrf := collectFormFields(sel)

		intent := hasContactIntent(sel, fields)
		if !intent && len(required) < 2 {
			return
		}

		action, _ := sel.Attr("action")
		action = strings.TrimSpace(action)
		if action == "" {
			if len(required) < 2 {
				return
			}
			action = sourceURL
		} else if base != nil {
			if ref, err := url.Parse(action); err == nil {
				action = base.ResolveReference(ref).String()
			}
		}

		confidence := domain.ConfidenceMedium
		if contactPage || textHasContactKeyword(sel.Text()) {
			confidence = domain.ConfidenceHigh
		}

		method, _ := sel.Attr("method")
		form := domain.NewContactForm(action, method, fields, required, sourceURL, confidence)
		form.CSRFToken = csrf
		forms = append(forms, form)
	})
	return forms
}

func collectFormFields(form *goquery.Selection) (fields, required []string, csrf string) {
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		fields = append(fields, name)

		if csrfNamePattern.MatchString(name) {
			if value, ok := sel.Attr("value"); ok && csrf == "" {
				csrf = value
			}
		}

		if isRequiredField(sel, name) {
			required = append(required, name)
		}
	})
	return fields, required, csrf
}

func isRequiredField(sel *goquery.Selection, name string) bool {
	if _, ok := sel.Attr("required"); ok {
		return true
	}
	if aria, ok := sel.Attr("aria-required"); ok && strings.EqualFold(aria, "true") {
		return true
	}
	_, recognized := recognizedRequired[strings.ToLower(name)]
	return recognized
}

func hasContactIntent(form *goquery.Selection, fields []string) bool {
	if textHasContactKeyword(form.Text()) {
		return true
	}
	for _, name := range fields {
		lower := strings.ToLower(name)
		for _, kw := range formIntentKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func textHasContactKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range formIntentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

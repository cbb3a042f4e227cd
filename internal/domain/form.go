package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// ContactForm is a discovered contact form. RequiredFields is always a
// subset of Fields.
type ContactForm struct {
	ActionURL      string          `json:"action_url"`
	Method         string          `json:"method"`
	Fields         []string        `json:"fields"`
	RequiredFields []string        `json:"required_fields"`
	CSRFToken      string          `json:"csrf_token,omitempty"`
	SourceURL      string          `json:"source_url"`
	Confidence     ConfidenceLevel `json:"confidence"`
	Timestamp      time.Time       `json:"timestamp"`
	Hash           string          `json:"form_hash"`
}

// NewContactForm builds a form record. An unrecognized HTTP method falls
// back to POST, and required names not present in fields are dropped to
// keep the subset invariant.
func NewContactForm(actionURL, method string, fields, required []string, sourceURL string, confidence ConfidenceLevel) *ContactForm {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m != "GET" && m != "POST" {
		m = "POST"
	}
	return &ContactForm{
		ActionURL:      actionURL,
		Method:         m,
		Fields:         fields,
		RequiredFields: intersectOrdered(required, fields),
		SourceURL:      sourceURL,
		Confidence:     confidence,
		Timestamp:      time.Now().UTC(),
		Hash:           FormHash(actionURL, sourceURL),
	}
}

// FormHash derives the dedup key from (action URL, source URL).
func FormHash(actionURL, sourceURL string) string {
	h := sha256.New()
	h.Write([]byte("form:" + actionURL + ":" + sourceURL))
	return hex.EncodeToString(h.Sum(nil))
}

func (f *ContactForm) UnmarshalJSON(data []byte) error {
	type plain ContactForm
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = ContactForm(p)
	f.RequiredFields = intersectOrdered(f.RequiredFields, f.Fields)
	f.Hash = FormHash(f.ActionURL, f.SourceURL)
	return nil
}

func intersectOrdered(subset, all []string) []string {
	have := make(map[string]struct{}, len(all))
	for _, name := range all {
		have[name] = struct{}{}
	}
	out := make([]string, 0, len(subset))
	for _, name := range subset {
		if _, ok := have[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

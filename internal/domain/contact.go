package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// ContactMethod identifies how a contact pathway can be used.
type ContactMethod string

const (
	MethodEmail  ContactMethod = "email"
	MethodPhone  ContactMethod = "phone"
	MethodForm   ContactMethod = "form"
	MethodPage   ContactMethod = "page"
	MethodMailto ContactMethod = "mailto"
)

// ConfidenceLevel is the extraction-time estimate of how likely a
// candidate is a genuinely usable contact. It is ordinal, not numeric,
// and is never touched by validation.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Rank orders confidence levels for threshold filtering. Higher is better.
func (c ConfidenceLevel) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// ContactStatus is the outcome of active verification, independent of
// confidence. FLAGGED means "needs manual review", INVALID means
// "confirmed bad".
type ContactStatus string

const (
	StatusUnverified ContactStatus = "unverified"
	StatusVerified   ContactStatus = "verified"
	StatusInvalid    ContactStatus = "invalid"
	StatusFlagged    ContactStatus = "flagged"
)

// Contact is a single discovered contact pathway. Created only by
// extraction; the validator may update Status once; immutable after
// storage.
type Contact struct {
	Method        ContactMethod     `json:"method"`
	Value         string            `json:"value"`
	Confidence    ConfidenceLevel   `json:"confidence"`
	SourceURL     string            `json:"source_url"`
	DiscoveryPath []string          `json:"discovery_path"`
	Timestamp     time.Time         `json:"timestamp"`
	Status        ContactStatus     `json:"verification_status"`
	Metadata      map[string]string `json:"metadata"`
	Hash          string            `json:"contact_hash"`
}

// NewContact builds a contact with a normalized value and a stable
// content hash. Email and mailto values are lowercased; phone values are
// reduced to digits and a leading "+".
func NewContact(method ContactMethod, value string, confidence ConfidenceLevel, sourceURL string) *Contact {
	normalized := NormalizeValue(method, value)
	return &Contact{
		Method:     method,
		Value:      normalized,
		Confidence: confidence,
		SourceURL:  sourceURL,
		Timestamp:  time.Now().UTC(),
		Status:     StatusUnverified,
		Metadata:   map[string]string{},
		Hash:       ContactHash(method, normalized, sourceURL),
	}
}

// NormalizeValue applies the method-specific normalization used at
// construction time.
func NormalizeValue(method ContactMethod, value string) string {
	switch method {
	case MethodEmail, MethodMailto:
		return strings.ToLower(strings.TrimSpace(value))
	case MethodPhone:
		return NormalizePhone(value)
	}
	return strings.TrimSpace(value)
}

// NormalizePhone strips everything except digits and a leading "+".
func NormalizePhone(value string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(value) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContactHash derives the dedup key from (method, value, source URL).
// Metadata and timestamps never participate, so two contacts found on
// the same page through different code paths collapse to one row.
func ContactHash(method ContactMethod, value, sourceURL string) string {
	h := sha256.New()
	h.Write([]byte(string(method) + ":" + value + ":" + sourceURL))
	return hex.EncodeToString(h.Sum(nil))
}

// UnmarshalJSON recomputes the hash instead of trusting the input.
func (c *Contact) UnmarshalJSON(data []byte) error {
	type plain Contact
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Contact(p)
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	c.Hash = ContactHash(c.Method, c.Value, c.SourceURL)
	return nil
}

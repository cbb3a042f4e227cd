package extractor

import (
	"strings"

	"flatwatch/internal/domain"
)

// DeduplicateContacts keeps the first occurrence per (method, lowercased
// value) pair, preserving order. This trims duplicate work before
// validation; storage applies its own hash-level dedup independently.
func DeduplicateContacts(contacts []*domain.Contact) []*domain.Contact {
	seen := make(map[string]struct{}, len(contacts))
	out := make([]*domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		key := string(c.Method) + "|" + strings.ToLower(c.Value)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

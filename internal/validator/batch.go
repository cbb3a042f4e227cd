package validator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"flatwatch/internal/domain"
)

// BatchResult summarizes one batch validation run.
type BatchResult struct {
	Total      int `json:"total"`
	Verified   int `json:"verified"`
	Unverified int `json:"unverified"`
	Invalid    int `json:"invalid"`
	Flagged    int `json:"flagged"`
}

// ValidateBatch runs contacts through the pipeline sequentially,
// respecting the shared rate gate. One bad contact never aborts the
// rest.
func (v *Validator) ValidateBatch(ctx context.Context, contacts []*domain.Contact) BatchResult {
	result := BatchResult{Total: len(contacts)}
	for _, c := range contacts {
		if err := v.ValidateContact(ctx, c); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				v.logger.Debug("contact rejected",
					zap.String("value", c.Value),
					zap.String("reason", verr.Reason))
			} else {
				v.logger.Warn("contact flagged for review",
					zap.String("value", c.Value),
					zap.Error(err))
			}
		}
		switch c.Status {
		case domain.StatusVerified:
			result.Verified++
		case domain.StatusInvalid:
			result.Invalid++
		case domain.StatusFlagged:
			result.Flagged++
		default:
			result.Unverified++
		}
	}
	return result
}

// Recommendations derives advisory hints from a batch result. They feed
// dashboards and logs, never control flow.
func Recommendations(r BatchResult) []string {
	var recs []string
	if r.Total == 0 {
		recs = append(recs, "no contacts discovered; consider increasing the crawl depth")
		return recs
	}
	if float64(r.Invalid)/float64(r.Total) > 0.5 {
		recs = append(recs, "high invalid ratio; review the extraction patterns")
	}
	if r.Flagged > 0 {
		recs = append(recs, "flagged contacts need manual review")
	}
	if r.Total < 3 {
		recs = append(recs, "low contact count; consider increasing the crawl depth")
	}
	return recs
}

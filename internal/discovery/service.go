package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"flatwatch/internal/domain"
	"flatwatch/internal/extractor"
	"flatwatch/internal/storage"
	"flatwatch/internal/validator"
)

// Listing is the payload handed over by the listing scrapers. Only the
// URL-bearing fields matter here.
type Listing map[string]any

// urlFields is the resolution order for the listing URL.
var urlFields = []string{"url", "link", "source_url", "details_url"}

// ResolveListingURL picks the first URL-bearing field from a listing.
func ResolveListingURL(listing Listing) (string, bool) {
	for _, field := range urlFields {
		if raw, ok := listing[field]; ok {
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

// ContactExtractor is the discovery engine surface the service needs.
type ContactExtractor interface {
	DiscoverContacts(ctx context.Context, pageURL string, dctx domain.DiscoveryContext) ([]*domain.Contact, []*domain.ContactForm, error)
}

// ContactValidator runs batches through the verification pipeline.
type ContactValidator interface {
	ValidateBatch(ctx context.Context, contacts []*domain.Contact) validator.BatchResult
}

// Store is the persistence surface the service needs.
type Store interface {
	StoreContact(ctx context.Context, c *domain.Contact, listingID string) (bool, error)
	StoreForm(ctx context.Context, f *domain.ContactForm, listingID string) (bool, error)
	GetContactStatistics(ctx context.Context) (*storage.Statistics, error)
	CleanupOldContacts(ctx context.Context, daysOld int) (int, error)
}

// Recorder receives one measurement per discovery attempt.
type Recorder interface {
	RecordContactExtraction(duration time.Duration, success bool, contacts, emails, phones, forms, highConfidence, validationFailures int)
	IncErrorsTotal(errorType string)
}

// Settings is the per-service policy knob set.
type Settings struct {
	ConfidenceThreshold string
	ValidationEnabled   bool
	MaxCrawlDepth       int
	CrawlTimeout        time.Duration
	BlockedDomains      []string
	CleanupDays         int
}

// Service wires extractor, validator, and storage for listings.
type Service struct {
	extractor ContactExtractor
	validator ContactValidator
	store     Store
	metrics   Recorder
	logger    *zap.Logger
	settings  Settings
	blocked   map[string]struct{}

	attempts  atomic.Int64
	successes atomic.Int64
}

func NewService(ext ContactExtractor, val ContactValidator, store Store, metrics Recorder, settings Settings, logger *zap.Logger) *Service {
	blocked := make(map[string]struct{}, len(settings.BlockedDomains))
	for _, d := range settings.BlockedDomains {
		blocked[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Service{
		extractor: ext,
		validator: val,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		settings:  settings,
		blocked:   blocked,
	}
}

// Result is what one listing's discovery produced and persisted.
type Result struct {
	ListingURL string                `json:"listing_url"`
	Contacts   []*domain.Contact     `json:"contacts"`
	Forms      []*domain.ContactForm `json:"forms"`
	Stored     int                   `json:"stored"`
	Duplicates int                   `json:"duplicates"`
	Failed     int                   `json:"failed"`
	Validation validator.BatchResult `json:"validation"`
}

// ProcessListing is the primary entry point: resolve the listing URL,
// discover, filter, optionally validate, drop blocklisted domains, and
// persist. A listing without any URL field yields an empty result, not
// an error. The metrics recorder hears about every attempted discovery,
// success or failure.
func (s *Service) ProcessListing(ctx context.Context, listing Listing, listingID string) (*Result, error) {
	listingURL, ok := ResolveListingURL(listing)
	if !ok {
		s.logger.Debug("listing has no url field, skipping", zap.String("listing_id", listingID))
		return &Result{}, nil
	}

	start := time.Now()
	s.attempts.Add(1)

	dctx, err := domain.NewDiscoveryContext(listingURL, s.settings.MaxCrawlDepth, s.settings.CrawlTimeout)
	if err != nil {
		s.recordFailure(start, "bad_listing_url")
		return nil, fmt.Errorf("listing url: %w", err)
	}

	contacts, forms, err := s.extractor.DiscoverContacts(ctx, listingURL, dctx)
	if err != nil {
		s.recordFailure(start, "scrape_failed")
		return nil, err
	}

	contacts = extractor.DeduplicateContacts(contacts)
	contacts = FilterByConfidence(contacts, s.settings.ConfidenceThreshold)
	forms = filterFormsByConfidence(forms, s.settings.ConfidenceThreshold)

	// Filter-before-validate: weeding out low-confidence candidates
	// first saves DNS and SMTP round trips.
	var batch validator.BatchResult
	if s.settings.ValidationEnabled && s.validator != nil {
		batch = s.validator.ValidateBatch(ctx, contacts)
	}

	result := &Result{ListingURL: listingURL, Validation: batch}
	var emails, phones, high int
	for _, c := range contacts {
		if s.isBlocked(c) {
			s.logger.Debug("contact domain blocklisted",
				zap.String("value", c.Value), zap.String("listing_id", listingID))
			continue
		}
		result.Contacts = append(result.Contacts, c)

		switch c.Method {
		case domain.MethodEmail, domain.MethodMailto:
			emails++
		case domain.MethodPhone:
			phones++
		}
		if c.Confidence == domain.ConfidenceHigh {
			high++
		}

		created, err := s.store.StoreContact(ctx, c, listingID)
		switch {
		case err != nil:
			result.Failed++
			s.metrics.IncErrorsTotal("db_store_failed")
			s.logger.Error("contact store failed", zap.String("hash", c.Hash), zap.Error(err))
		case created:
			result.Stored++
		default:
			result.Duplicates++
		}
	}

	for _, f := range forms {
		result.Forms = append(result.Forms, f)
		created, err := s.store.StoreForm(ctx, f, listingID)
		switch {
		case err != nil:
			result.Failed++
			s.metrics.IncErrorsTotal("db_store_failed")
			s.logger.Error("form store failed", zap.String("hash", f.Hash), zap.Error(err))
		case created:
			result.Stored++
		default:
			result.Duplicates++
		}
	}

	s.successes.Add(1)
	s.metrics.RecordContactExtraction(time.Since(start), true,
		len(result.Contacts), emails, phones, len(result.Forms), high,
		batch.Invalid+batch.Flagged)

	s.logger.Info("listing processed",
		zap.String("url", listingURL),
		zap.String("listing_id", listingID),
		zap.Int("contacts", len(result.Contacts)),
		zap.Int("forms", len(result.Forms)),
		zap.Int("stored", result.Stored),
		zap.Int("duplicates", result.Duplicates))

	return result, nil
}

func (s *Service) recordFailure(start time.Time, errorType string) {
	s.metrics.IncErrorsTotal(errorType)
	s.metrics.RecordContactExtraction(time.Since(start), false, 0, 0, 0, 0, 0, 0)
}

func (s *Service) isBlocked(c *domain.Contact) bool {
	if c.Method != domain.MethodEmail && c.Method != domain.MethodMailto {
		return false
	}
	at := strings.LastIndex(c.Value, "@")
	if at < 0 {
		return false
	}
	_, blocked := s.blocked[strings.ToLower(c.Value[at+1:])]
	return blocked
}

// BatchOutcome aggregates a batch of listings.
type BatchOutcome struct {
	Processed     int `json:"processed"`
	ContactsFound int `json:"contacts_found"`
	FormsFound    int `json:"forms_found"`
	Errors        int `json:"errors"`
}

// ProcessListingsBatch processes listings independently; one listing's
// failure never stops the rest.
func (s *Service) ProcessListingsBatch(ctx context.Context, listings []Listing, listingIDs []string) BatchOutcome {
	var outcome BatchOutcome
	for i, listing := range listings {
		id := ""
		if i < len(listingIDs) {
			id = listingIDs[i]
		}
		result, err := s.ProcessListing(ctx, listing, id)
		if err != nil {
			outcome.Errors++
			s.logger.Warn("listing discovery failed", zap.String("listing_id", id), zap.Error(err))
			continue
		}
		outcome.Processed++
		outcome.ContactsFound += len(result.Contacts)
		outcome.FormsFound += len(result.Forms)
	}
	return outcome
}

// ContactStats merges storage statistics with the extraction success
// rate observed by this service instance.
type ContactStats struct {
	*storage.Statistics
	ExtractionSuccessRate float64 `json:"extraction_success_rate"`
}

func (s *Service) GetContactStats(ctx context.Context) (*ContactStats, error) {
	stats, err := s.store.GetContactStatistics(ctx)
	if err != nil {
		return nil, err
	}
	rate := 0.0
	if attempts := s.attempts.Load(); attempts > 0 {
		rate = float64(s.successes.Load()) / float64(attempts)
	}
	return &ContactStats{Statistics: stats, ExtractionSuccessRate: rate}, nil
}

// CleanupOldContacts removes contacts past the retention threshold.
// daysOld <= 0 falls back to the configured default.
func (s *Service) CleanupOldContacts(ctx context.Context, daysOld int) (int, error) {
	if daysOld <= 0 {
		daysOld = s.settings.CleanupDays
	}
	return s.store.CleanupOldContacts(ctx, daysOld)
}

// FilterByConfidence applies the threshold policy: "high" keeps only
// HIGH, "medium" keeps HIGH and MEDIUM, anything else keeps all.
func FilterByConfidence(contacts []*domain.Contact, threshold string) []*domain.Contact {
	min := thresholdRank(threshold)
	if min == 0 {
		return contacts
	}
	out := make([]*domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.Confidence.Rank() >= min {
			out = append(out, c)
		}
	}
	return out
}

func filterFormsByConfidence(forms []*domain.ContactForm, threshold string) []*domain.ContactForm {
	min := thresholdRank(threshold)
	if min == 0 {
		return forms
	}
	out := make([]*domain.ContactForm, 0, len(forms))
	for _, f := range forms {
		if f.Confidence.Rank() >= min {
			out = append(out, f)
		}
	}
	return out
}

func thresholdRank(threshold string) int {
	switch strings.ToLower(threshold) {
	case "high":
		return domain.ConfidenceHigh.Rank()
	case "medium":
		return domain.ConfidenceMedium.Rank()
	}
	return 0
}

package discovery_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flatwatch/internal/discovery"
	"flatwatch/internal/domain"
	"flatwatch/internal/extractor"
	"flatwatch/internal/storage"
	"flatwatch/internal/validator"
)

// fakeExtractor returns canned discovery results keyed by URL.
type fakeExtractor struct {
	contacts map[string][]*domain.Contact
	forms    map[string][]*domain.ContactForm
	err      error
}

func (f *fakeExtractor) DiscoverContacts(_ context.Context, pageURL string, _ domain.DiscoveryContext) ([]*domain.Contact, []*domain.ContactForm, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.contacts[pageURL], f.forms[pageURL], nil
}

// memStore is an in-memory stand-in for the Postgres store with the
// same insert-or-ignore contract.
type memStore struct {
	mu       sync.Mutex
	contacts map[string]*domain.Contact
	forms    map[string]*domain.ContactForm
	failNext bool
}

func newMemStore() *memStore {
	return &memStore{
		contacts: make(map[string]*domain.Contact),
		forms:    make(map[string]*domain.ContactForm),
	}
}

func (m *memStore) StoreContact(_ context.Context, c *domain.Contact, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return false, errors.New("connection reset")
	}
	if _, dup := m.contacts[c.Hash]; dup {
		return false, nil
	}
	m.contacts[c.Hash] = c
	return true, nil
}

func (m *memStore) StoreForm(_ context.Context, f *domain.ContactForm, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.forms[f.Hash]; dup {
		return false, nil
	}
	m.forms[f.Hash] = f
	return true, nil
}

func (m *memStore) GetContactStatistics(_ context.Context) (*storage.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &storage.Statistics{
		TotalContacts: len(m.contacts),
		TotalForms:    len(m.forms),
		ByMethod:      map[string]int{},
		ByStatus:      map[string]int{},
		ByConfidence:  map[string]int{},
	}
	for _, c := range m.contacts {
		stats.ByMethod[string(c.Method)]++
		stats.ByStatus[string(c.Status)]++
		stats.ByConfidence[string(c.Confidence)]++
	}
	return stats, nil
}

func (m *memStore) CleanupOldContacts(_ context.Context, _ int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.contacts)
	m.contacts = make(map[string]*domain.Contact)
	return n, nil
}

// recorderSpy captures metrics calls.
type recorderSpy struct {
	mu       sync.Mutex
	recorded int
	success  []bool
	errors   []string
}

func (r *recorderSpy) RecordContactExtraction(_ time.Duration, success bool, _, _, _, _, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded++
	r.success = append(r.success, success)
}

func (r *recorderSpy) IncErrorsTotal(errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, errorType)
}

// passValidator marks every contact verified without network access.
type passValidator struct{ calls int }

func (v *passValidator) ValidateBatch(_ context.Context, contacts []*domain.Contact) validator.BatchResult {
	v.calls++
	result := validator.BatchResult{Total: len(contacts)}
	for _, c := range contacts {
		c.Status = domain.StatusVerified
		result.Verified++
	}
	return result
}

func defaultSettings() discovery.Settings {
	return discovery.Settings{
		ConfidenceThreshold: "medium",
		ValidationEnabled:   false,
		MaxCrawlDepth:       2,
		CrawlTimeout:        time.Second,
		CleanupDays:         90,
	}
}

func TestResolveListingURL_FieldOrder(t *testing.T) {
	t.Parallel()

	url, ok := discovery.ResolveListingURL(discovery.Listing{
		"details_url": "https://firm.de/d",
		"link":        "https://firm.de/l",
	})
	require.True(t, ok)
	assert.Equal(t, "https://firm.de/l", url, "link outranks details_url")

	_, ok = discovery.ResolveListingURL(discovery.Listing{"title": "3-Zimmer-Wohnung"})
	assert.False(t, ok)
}

func TestProcessListing_StoresDiscoveredContacts(t *testing.T) {
	t.Parallel()

	listingURL := "https://firm.de/expose/1"
	ext := &fakeExtractor{
		contacts: map[string][]*domain.Contact{
			listingURL: {
				domain.NewContact(domain.MethodEmail, "info@firm.de", domain.ConfidenceHigh, listingURL),
				domain.NewContact(domain.MethodPhone, "+49891234567", domain.ConfidenceMedium, listingURL),
			},
		},
		forms: map[string][]*domain.ContactForm{
			listingURL: {
				domain.NewContactForm("https://firm.de/kontakt", "POST", []string{"email"}, []string{"email"}, listingURL, domain.ConfidenceHigh),
			},
		},
	}
	store := newMemStore()
	rec := &recorderSpy{}
	svc := discovery.NewService(ext, nil, store, rec, defaultSettings(), zap.NewNop())

	result, err := svc.ProcessListing(context.Background(), discovery.Listing{"url": listingURL}, "lst-1")
	require.NoError(t, err)

	assert.Len(t, result.Contacts, 2)
	assert.Len(t, result.Forms, 1)
	assert.Equal(t, 3, result.Stored)
	assert.Equal(t, 0, result.Duplicates)
	assert.Len(t, store.contacts, 2)
	assert.Len(t, store.forms, 1)
	require.Equal(t, 1, rec.recorded)
	assert.True(t, rec.success[0])
}

func TestProcessListing_NoURLFieldSkipsQuietly(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	rec := &recorderSpy{}
	svc := discovery.NewService(&fakeExtractor{}, nil, store, rec, defaultSettings(), zap.NewNop())

	result, err := svc.ProcessListing(context.Background(), discovery.Listing{"title": "WG-Zimmer"}, "lst-2")
	require.NoError(t, err)
	assert.Empty(t, result.Contacts)
	assert.Zero(t, rec.recorded, "no URL means no discovery attempt")
}

func TestProcessListing_ConfidenceThreshold(t *testing.T) {
	t.Parallel()

	listingURL := "https://firm.de/expose/2"
	ext := &fakeExtractor{
		contacts: map[string][]*domain.Contact{
			listingURL: {
				domain.NewContact(domain.MethodEmail, "high@firm.de", domain.ConfidenceHigh, listingURL),
				domain.NewContact(domain.MethodEmail, "medium@firm.de", domain.ConfidenceMedium, listingURL),
				domain.NewContact(domain.MethodEmail, "low@firm.de", domain.ConfidenceLow, listingURL),
			},
		},
	}
	store := newMemStore()
	svc := discovery.NewService(ext, nil, store, &recorderSpy{}, defaultSettings(), zap.NewNop())

	result, err := svc.ProcessListing(context.Background(), discovery.Listing{"url": listingURL}, "")
	require.NoError(t, err)
	assert.Len(t, result.Contacts, 2, `"medium" keeps HIGH and MEDIUM`)
	for _, c := range result.Contacts {
		assert.NotEqual(t, domain.ConfidenceLow, c.Confidence)
	}
}

func TestProcessListing_BlocklistedDomainNeverStored(t *testing.T) {
	t.Parallel()

	listingURL := "https://firm.de/expose/3"
	ext := &fakeExtractor{
		contacts: map[string][]*domain.Contact{
			listingURL: {
				domain.NewContact(domain.MethodEmail, "user@blocked.com", domain.ConfidenceHigh, listingURL),
				domain.NewContact(domain.MethodEmail, "ok@firm.de", domain.ConfidenceHigh, listingURL),
			},
		},
	}
	store := newMemStore()
	settings := defaultSettings()
	settings.BlockedDomains = []string{"blocked.com"}
	svc := discovery.NewService(ext, nil, store, &recorderSpy{}, settings, zap.NewNop())

	result, err := svc.ProcessListing(context.Background(), discovery.Listing{"url": listingURL}, "")
	require.NoError(t, err)

	require.Len(t, result.Contacts, 1)
	assert.Equal(t, "ok@firm.de", result.Contacts[0].Value)
	for _, c := range store.contacts {
		assert.NotEqual(t, "user@blocked.com", c.Value)
	}
}

func TestProcessListing_ValidationRunsOnFilteredContacts(t *testing.T) {
	t.Parallel()

	listingURL := "https://firm.de/expose/4"
	ext := &fakeExtractor{
		contacts: map[string][]*domain.Contact{
			listingURL: {
				domain.NewContact(domain.MethodEmail, "info@firm.de", domain.ConfidenceHigh, listingURL),
				domain.NewContact(domain.MethodEmail, "weak@firm.de", domain.ConfidenceLow, listingURL),
			},
		},
	}
	val := &passValidator{}
	settings := defaultSettings()
	settings.ValidationEnabled = true
	svc := discovery.NewService(ext, val, newMemStore(), &recorderSpy{}, settings, zap.NewNop())

	result, err := svc.ProcessListing(context.Background(), discovery.Listing{"url": listingURL}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, val.calls)
	assert.Equal(t, 1, result.Validation.Total, "low-confidence contact was filtered before validation")
	assert.Equal(t, domain.StatusVerified, result.Contacts[0].Status)
}

func TestProcessListing_ExtractorErrorRecorded(t *testing.T) {
	t.Parallel()

	rec := &recorderSpy{}
	svc := discovery.NewService(&fakeExtractor{err: errors.New("boom")}, nil, newMemStore(), rec, defaultSettings(), zap.NewNop())

	_, err := svc.ProcessListing(context.Background(), discovery.Listing{"url": "https://firm.de/x"}, "")
	require.Error(t, err)
	require.Equal(t, 1, rec.recorded)
	assert.False(t, rec.success[0])
	assert.Contains(t, rec.errors, "scrape_failed")
}

func TestProcessListing_DuplicateStoreIsNotAnError(t *testing.T) {
	t.Parallel()

	listingURL := "https://firm.de/expose/5"
	contact := domain.NewContact(domain.MethodEmail, "info@firm.de", domain.ConfidenceHigh, listingURL)
	ext := &fakeExtractor{
		contacts: map[string][]*domain.Contact{listingURL: {contact}},
	}
	store := newMemStore()
	store.contacts[contact.Hash] = contact

	svc := discovery.NewService(ext, nil, store, &recorderSpy{}, defaultSettings(), zap.NewNop())
	result, err := svc.ProcessListing(context.Background(), discovery.Listing{"url": listingURL}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stored)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 0, result.Failed)
}

func TestProcessListing_StoreFailureCountedNotFatal(t *testing.T) {
	t.Parallel()

	listingURL := "https://firm.de/expose/7"
	ext := &fakeExtractor{
		contacts: map[string][]*domain.Contact{
			listingURL: {domain.NewContact(domain.MethodEmail, "info@firm.de", domain.ConfidenceHigh, listingURL)},
		},
	}
	store := newMemStore()
	store.failNext = true
	rec := &recorderSpy{}

	svc := discovery.NewService(ext, nil, store, rec, defaultSettings(), zap.NewNop())
	result, err := svc.ProcessListing(context.Background(), discovery.Listing{"url": listingURL}, "")
	require.NoError(t, err, "a storage failure does not fail the listing")
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Stored)
	assert.Contains(t, rec.errors, "db_store_failed")
}

func TestProcessListingsBatch_IsolatesFailures(t *testing.T) {
	t.Parallel()

	good := "https://firm.de/expose/6"
	ext := &fakeExtractor{
		contacts: map[string][]*domain.Contact{
			good: {domain.NewContact(domain.MethodEmail, "info@firm.de", domain.ConfidenceHigh, good)},
		},
	}
	svc := discovery.NewService(ext, nil, newMemStore(), &recorderSpy{}, defaultSettings(), zap.NewNop())

	outcome := svc.ProcessListingsBatch(context.Background(), []discovery.Listing{
		{"url": good},
		{"url": "::not a url::"},
		{"title": "kein Link"},
	}, []string{"a", "b", "c"})

	assert.Equal(t, 2, outcome.Processed, "listing without URL still counts as processed")
	assert.Equal(t, 1, outcome.Errors)
	assert.Equal(t, 1, outcome.ContactsFound)
}

func TestGetContactStats_SuccessRate(t *testing.T) {
	t.Parallel()

	good := "https://firm.de/expose/8"
	ext := &fakeExtractor{
		contacts: map[string][]*domain.Contact{
			good: {domain.NewContact(domain.MethodEmail, "info@firm.de", domain.ConfidenceHigh, good)},
		},
	}
	svc := discovery.NewService(ext, nil, newMemStore(), &recorderSpy{}, defaultSettings(), zap.NewNop())

	_, err := svc.ProcessListing(context.Background(), discovery.Listing{"url": good}, "")
	require.NoError(t, err)
	_, err = svc.ProcessListing(context.Background(), discovery.Listing{"url": "::bad::"}, "")
	require.Error(t, err)

	stats, err := svc.GetContactStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalContacts)
	assert.InDelta(t, 0.5, stats.ExtractionSuccessRate, 0.001)
}

func TestFilterByConfidence_UnknownThresholdKeepsAll(t *testing.T) {
	t.Parallel()

	contacts := []*domain.Contact{
		domain.NewContact(domain.MethodEmail, "a@b.co", domain.ConfidenceLow, "https://x.de"),
	}
	assert.Len(t, discovery.FilterByConfidence(contacts, "whatever"), 1)
	assert.Len(t, discovery.FilterByConfidence(contacts, "high"), 0)
}

// Interface conformance for the real extractor.
var _ discovery.ContactExtractor = (*extractor.Extractor)(nil)

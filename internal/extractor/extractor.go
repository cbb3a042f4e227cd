package extractor

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"flatwatch/internal/domain"
)

// fanOutLimit bounds how many candidate contact links one page may
// recurse into.
const fanOutLimit = 3

// Source is the capability interface for extraction strategies. The
// HTML strategy ships here; OCR/PDF/JS-rendered strategies plug in
// through the same contract.
type Source interface {
	CanProcess(source string) bool
	ExtractContacts(ctx context.Context, source string, dctx domain.DiscoveryContext) ([]*domain.Contact, []*domain.ContactForm, error)
}

// Extractor runs the bounded recursive contact discovery over HTML
// pages. The visited set lives on the instance, so repeated calls
// within one session dedup work across listings; instances must not be
// shared between concurrently running sessions.
type Extractor struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu      sync.Mutex
	visited map[string]struct{}
}

func New(fetcher Fetcher, logger *zap.Logger) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		logger:  logger,
		visited: make(map[string]struct{}),
	}
}

// CanProcess accepts http(s) URLs.
func (e *Extractor) CanProcess(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ExtractContacts implements Source by delegating to DiscoverContacts.
func (e *Extractor) ExtractContacts(ctx context.Context, source string, dctx domain.DiscoveryContext) ([]*domain.Contact, []*domain.ContactForm, error) {
	return e.DiscoverContacts(ctx, source, dctx)
}

// DiscoverContacts fetches a page, extracts contact pathways, and, when
// the page yields no contacts and the depth budget allows, follows up
// to three contact-looking links. Fetch failures surface as
// *ScrapeError; failures inside the fan-out are logged and skipped so
// sibling candidates still run.
func (e *Extractor) DiscoverContacts(ctx context.Context, pageURL string, dctx domain.DiscoveryContext) ([]*domain.Contact, []*domain.ContactForm, error) {
	return e.discover(ctx, pageURL, dctx, nil)
}

func (e *Extractor) discover(ctx context.Context, pageURL string, dctx domain.DiscoveryContext, path []string) ([]*domain.Contact, []*domain.ContactForm, error) {
	if !e.markVisited(pageURL) {
		return nil, nil, nil
	}

	html, err := e.fetcher.Fetch(ctx, pageURL, dctx.Timeout)
	if err != nil {
		return nil, nil, &ScrapeError{URL: pageURL, Err: err}
	}

	contacts, forms, err := e.ExtractFromHTML(pageURL, html)
	if err != nil {
		return nil, nil, &ScrapeError{URL: pageURL, Err: err}
	}

	currentPath := append(append([]string(nil), path...), pageURL)
	for _, c := range contacts {
		c.DiscoveryPath = currentPath
	}

	if len(contacts) == 0 && dctx.CanCrawlDeeper() {
		doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(html))
		if parseErr == nil {
			candidates := FindContactLinks(doc, pageURL, dctx)
			if len(candidates) > fanOutLimit {
				candidates = candidates[:fanOutLimit]
			}
			for _, link := range candidates {
				subContacts, subForms, subErr := e.discover(ctx, link, dctx.NextDepth(), currentPath)
				if subErr != nil {
					e.logger.Warn("contact link crawl failed",
						zap.String("url", link),
						zap.Int("depth", dctx.CurrentDepth+1),
						zap.Error(subErr))
					continue
				}
				contacts = append(contacts, subContacts...)
				forms = append(forms, subForms...)
			}
		}
	}

	return contacts, forms, nil
}

// ExtractFromHTML runs all extraction passes over one page without
// recursing. Mailto results come first so "first occurrence wins" dedup
// favors the strongest signal.
func (e *Extractor) ExtractFromHTML(pageURL, html string) ([]*domain.Contact, []*domain.ContactForm, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, err
	}

	contacts := ExtractMailtoLinks(doc, pageURL)

	text := pageText(doc)
	contacts = append(contacts, ExtractEmails(text, pageURL)...)
	contacts = append(contacts, ExtractPhones(text, pageURL)...)

	forms := ExtractForms(doc, pageURL)
	return contacts, forms, nil
}

func (e *Extractor) markVisited(pageURL string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, seen := e.visited[pageURL]; seen {
		return false
	}
	e.visited[pageURL] = struct{}{}
	return true
}

// pageText returns visible body text with script and style content
// stripped.
func pageText(doc *goquery.Document) string {
	clone := doc.Selection.Clone()
	clone.Find("script, style, noscript").Remove()
	return clone.Text()
}

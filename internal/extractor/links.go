package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"flatwatch/internal/domain"
)

const maxCandidateLinks = 10

var (
	contactLinkKeywords = []string{"kontakt", "contact", "impressum", "imprint", "about", "ansprechpartner"}
	contactURLPatterns  = []string{"/kontakt", "/contact", "/impressum", "/imprint", "/about", "/ueber-uns", "/anbieter"}
)

// FindContactLinks collects same-domain links that look like they lead
// to a contact page, in document order, deduplicated, capped at 10.
func FindContactLinks(doc *goquery.Document, sourceURL string, dctx domain.DiscoveryContext) []string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(strings.ToLower(href), "mailto:") ||
			strings.HasPrefix(strings.ToLower(href), "javascript:") || strings.HasPrefix(href, "#") {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		if !dctx.AllowsDomain(resolved.Hostname()) {
			return true
		}
		if !looksLikeContactLink(sel.Text(), resolved) {
			return true
		}

		resolved.Fragment = ""
		abs := resolved.String()
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return len(links) < maxCandidateLinks
	})
	return links
}

func looksLikeContactLink(text string, resolved *url.URL) bool {
	lowerText := strings.ToLower(text)
	lowerURL := strings.ToLower(resolved.String())
	for _, kw := range contactLinkKeywords {
		if strings.Contains(lowerText, kw) || strings.Contains(lowerURL, kw) {
			return true
		}
	}
	lowerPath := strings.ToLower(resolved.Path)
	for _, pattern := range contactURLPatterns {
		if strings.Contains(lowerPath, pattern) {
			return true
		}
	}
	return false
}

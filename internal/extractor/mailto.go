package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"flatwatch/internal/domain"
)

// ExtractMailtoLinks scans anchors for mailto hrefs. The page author
// explicitly marked these as email links, so every hit is HIGH
// confidence regardless of where it was found.
func ExtractMailtoLinks(doc *goquery.Document, sourceURL string) []*domain.Contact {
	var contacts []*domain.Contact
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
			return
		}
		address := strings.TrimSpace(href[len("mailto:"):])
		// Drop ?subject=... and friends.
		if i := strings.IndexAny(address, "?&"); i >= 0 {
			address = address[:i]
		}
		address = strings.ToLower(address)
		if !IsValidEmail(address) {
			return
		}
		c := domain.NewContact(domain.MethodEmail, address, domain.ConfidenceHigh, sourceURL)
		c.Metadata["pattern"] = "mailto"
		if text := strings.TrimSpace(sel.Text()); text != "" {
			c.Metadata["link_text"] = text
		}
		contacts = append(contacts, c)
	})
	return contacts
}

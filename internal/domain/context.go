package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DiscoveryContext carries the crawl policy for one discovery session:
// the domain allowlist, the depth budget, and the per-fetch timeout. It
// is treated as immutable; NextDepth returns a copy so sibling branches
// of a fan-out never share depth state.
type DiscoveryContext struct {
	BaseURL        string
	Domain         string
	AllowedDomains []string
	MaxDepth       int
	CurrentDepth   int
	Timeout        time.Duration
}

// NewDiscoveryContext derives the allowlist from the base URL's host,
// admitting both the bare and the www-prefixed form.
func NewDiscoveryContext(baseURL string, maxDepth int, timeout time.Duration) (DiscoveryContext, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return DiscoveryContext{}, fmt.Errorf("invalid base url %q", baseURL)
	}
	host := strings.ToLower(u.Hostname())
	bare := strings.TrimPrefix(host, "www.")
	allowed := []string{bare}
	if bare != host {
		allowed = append(allowed, host)
	} else {
		allowed = append(allowed, "www."+bare)
	}
	return DiscoveryContext{
		BaseURL:        baseURL,
		Domain:         bare,
		AllowedDomains: allowed,
		MaxDepth:       maxDepth,
		Timeout:        timeout,
	}, nil
}

func (d DiscoveryContext) CanCrawlDeeper() bool {
	return d.CurrentDepth < d.MaxDepth
}

// NextDepth returns a copy one level deeper. The receiver is unchanged.
func (d DiscoveryContext) NextDepth() DiscoveryContext {
	next := d
	next.CurrentDepth++
	next.AllowedDomains = append([]string(nil), d.AllowedDomains...)
	return next
}

// AllowsDomain reports whether a host is inside the crawl allowlist.
func (d DiscoveryContext) AllowsDomain(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range d.AllowedDomains {
		if host == allowed {
			return true
		}
	}
	return false
}

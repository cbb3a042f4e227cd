package extractor

import "fmt"

// ScrapeError marks a recoverable per-URL failure (fetch, HTTP status,
// parse). Callers decide whether to retry or skip; sibling URLs in a
// fan-out keep running.
type ScrapeError struct {
	URL string
	Err error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

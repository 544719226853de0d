// Package enrich fetches the article page behind a record's link and lifts
// out the full press-release text. Selector lists are keyed by host, tried in
// priority order; anything that goes wrong degrades to a sentinel value so a
// single bad article never sinks the rest of a record set.
package enrich

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/pevans/regsnap/fetch"
	"github.com/pevans/regsnap/record"
)

// HostRule maps a host substring to the candidate content selectors for that
// site, in priority order. The first rule whose pattern matches the link's
// host wins; later rules are not consulted.
type HostRule struct {
	HostPattern string
	Selectors   []string
}

// DefaultRules returns the content selectors for the known press-release
// hosts. Order matters: the first matching pattern claims the link.
func DefaultRules() []HostRule {
	return []HostRule{
		{
			HostPattern: "cftc.gov",
			Selectors: []string{
				"div#content-container section.col-sm-7 div.region div.press-release",
				"div.article-body",
			},
		},
		{
			HostPattern: "fca.org.uk",
			Selectors: []string{
				"div.region-content",
				"div.article-content",
				"div.text-content",
				"div.main-content",
			},
		},
		{
			HostPattern: "securities-administrators.ca",
			Selectors: []string{
				"div.article-content",
				"div.entry-content",
				"div.post-content",
				"div.news-content",
				"section.article-body",
			},
		},
		{
			HostPattern: "sec.gov",
			Selectors: []string{
				"div#main-content article",
				"div.article-body",
			},
		},
	}
}

// Enricher performs the second-stage fetch for each record. Safe for
// concurrent use.
type Enricher struct {
	fetcher *fetch.Fetcher
	rules   []HostRule
	log     *log.Logger
}

// New creates an Enricher using the given fetcher and host rules. A nil
// logger discards output.
func New(fetcher *fetch.Fetcher, rules []HostRule, logger *log.Logger) *Enricher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Enricher{fetcher: fetcher, rules: rules, log: logger}
}

// Content fetches the article behind link and extracts its text. The result
// is always usable: sentinels stand in when the link is missing, the fetch
// fails, or no selector yields text. Never returns an error; failures here
// must not abort the rest of the record set.
func (e *Enricher) Content(ctx context.Context, link string) string {
	if link == record.NoLink {
		return record.NoContentFound
	}

	page, err := e.fetcher.Fetch(ctx, link)
	if err != nil {
		e.log.Error("failed to fetch article content", "url", link, "error", err)
		return record.ContentFetchError
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		e.log.Warn("failed to parse article page", "url", link, "error", err)
		return record.NoContentAvailable
	}

	rule, ok := e.ruleFor(link)
	if !ok {
		return record.NoContentAvailable
	}

	for _, selector := range rule.Selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return record.NoContentAvailable
}

// ruleFor picks the first rule whose pattern is a substring of the link's
// host.
func (e *Enricher) ruleFor(link string) (HostRule, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return HostRule{}, false
	}
	host := u.Host

	for _, rule := range e.rules {
		if strings.Contains(host, rule.HostPattern) {
			return rule, true
		}
	}
	return HostRule{}, false
}

package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/regsnap/record"
)

func parseDoc(page []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}
	return doc, nil
}

// resolve absolutizes href against the listing URL. Absolute links pass
// through unchanged.
func resolve(listing *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return listing.ResolveReference(ref).String()
}

func origin(listing *url.URL) string {
	return listing.Scheme + "://" + listing.Host
}

// csaExtractor reads listings built from repeated article blocks: a heading
// anchor carries the title and link, a sibling time element carries the date
// in its datetime attribute.
type csaExtractor struct{}

func (csaExtractor) Extract(page []byte, listing *url.URL) ([]Item, error) {
	doc, err := parseDoc(page)
	if err != nil {
		return nil, err
	}

	var items []Item
	doc.Find("article.listing-item").Each(func(_ int, article *goquery.Selection) {
		item := Item{Title: record.NoTitle, Link: record.NoLink, Date: record.NoDate}

		anchor := article.Find("h2.listing-title a").First()
		if anchor.Length() > 0 {
			if title := strings.TrimSpace(anchor.Text()); title != "" {
				item.Title = title
			}
			if href, ok := anchor.Attr("href"); ok {
				item.Link = resolve(listing, href)
			}
		}

		if datetime, ok := article.Find("div.entry-meta time").First().Attr("datetime"); ok {
			item.Date = datetime
		}

		items = append(items, item)
	})
	return items, nil
}

// fcaExtractor reads listings rendered as list items inside a content feed
// container. The publication date rides inside the title text as DD/MM/YYYY.
type fcaExtractor struct{}

var fcaDatePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)

func (fcaExtractor) Extract(page []byte, listing *url.URL) ([]Item, error) {
	doc, err := parseDoc(page)
	if err != nil {
		return nil, err
	}

	var items []Item
	doc.Find("div.content-feed__inner div.item-list ul li").Each(func(_ int, li *goquery.Selection) {
		item := Item{Title: record.NoTitle, Link: record.NoLink, Date: record.NoDate}

		anchor := li.Find("a").First()
		if anchor.Length() > 0 {
			if title := strings.TrimSpace(anchor.Text()); title != "" {
				item.Title = title
			}
			if href, ok := anchor.Attr("href"); ok {
				if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
					item.Link = href
				} else {
					item.Link = origin(listing) + href
				}
			}
		}

		if match := fcaDatePattern.FindString(item.Title); match != "" {
			item.Date = match
		}

		items = append(items, item)
	})
	return items, nil
}

// cftcExtractor reads listings laid out as table rows: the first cell holds
// the date, an anchor in one of the cells holds the title and link. Links are
// usually root-relative and get the site origin prefixed.
type cftcExtractor struct{}

func (cftcExtractor) Extract(page []byte, listing *url.URL) ([]Item, error) {
	doc, err := parseDoc(page)
	if err != nil {
		return nil, err
	}

	var items []Item
	doc.Find("div.view-content div.table-responsive table tbody tr").Each(func(_ int, row *goquery.Selection) {
		item := Item{Title: record.NoTitle, Link: record.NoLink, Date: record.NoDate}

		anchor := row.Find("td a").First()
		if anchor.Length() > 0 {
			if title := strings.TrimSpace(anchor.Text()); title != "" {
				item.Title = title
			}
			if href, ok := anchor.Attr("href"); ok {
				if strings.HasPrefix(href, "/") {
					item.Link = origin(listing) + href
				} else {
					item.Link = href
				}
			}
		}

		if date := strings.TrimSpace(row.Find("td:nth-child(1)").First().Text()); date != "" {
			item.Date = date
		}

		items = append(items, item)
	})
	return items, nil
}

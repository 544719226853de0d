package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/regsnap/record"
)

// secExtractor reads RSS/Atom press-release feeds. Feed entries already carry
// absolute links, so no normalization happens; dates are normalized to
// YYYY-MM-DD when the feed's timestamp parses, falling back to the raw date
// string.
type secExtractor struct{}

func (secExtractor) Extract(page []byte, listing *url.URL) ([]Item, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item := Item{Title: record.NoTitle, Link: record.NoLink, Date: record.NoDate}

		if title := strings.TrimSpace(entry.Title); title != "" {
			item.Title = title
		}
		if entry.Link != "" {
			item.Link = entry.Link
		}
		switch {
		case entry.PublishedParsed != nil:
			item.Date = entry.PublishedParsed.UTC().Format("2006-01-02")
		case entry.Published != "":
			item.Date = entry.Published
		}

		items = append(items, item)
	}
	return items, nil
}

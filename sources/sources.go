// Package sources defines the press-release sites the scraper visits and the
// extraction strategy assigned to each one.
package sources

import "github.com/pevans/regsnap/record"

// Strategy selects which extraction rules apply to a source's listing page.
// The set is closed; adding a source with a new page shape means adding a
// strategy, not editing a conditional chain.
type Strategy string

const (
	// StrategyCSA extracts repeated article blocks with a heading anchor
	// and a timestamp attribute.
	StrategyCSA Strategy = "csa"

	// StrategyFCA extracts list items inside a content feed container,
	// with the date embedded in the title text.
	StrategyFCA Strategy = "fca"

	// StrategyCFTC extracts table rows with the date in the first cell.
	StrategyCFTC Strategy = "cftc"

	// StrategySEC extracts items from an RSS or Atom feed.
	StrategySEC Strategy = "sec"
)

// Known reports whether s is a supported extraction strategy.
func Known(s Strategy) bool {
	switch s {
	case StrategyCSA, StrategyFCA, StrategyCFTC, StrategySEC:
		return true
	}
	return false
}

// Source describes one site: where its listing page lives, how to extract it,
// and the tags attached to its stored artifacts. Sources are defined at
// process start and never mutated.
type Source struct {
	Name       string
	ListingURL string
	Strategy   Strategy
	Tags       []record.Tag
}

// Default returns the built-in source registry. The returned slice is a fresh
// copy on every call.
func Default() []Source {
	return []Source{
		{
			Name:       "CSA",
			ListingURL: "https://www.securities-administrators.ca/news/",
			Strategy:   StrategyCSA,
			Tags:       []record.Tag{{Key: "CSASite", Value: "CSA"}},
		},
		{
			Name:       "FCA",
			ListingURL: "https://www.fca.org.uk/news",
			Strategy:   StrategyFCA,
			Tags:       []record.Tag{{Key: "FCASite", Value: "FCA"}},
		},
		{
			Name:       "CFTC",
			ListingURL: "https://www.cftc.gov/PressRoom/PressReleases",
			Strategy:   StrategyCFTC,
			Tags:       []record.Tag{{Key: "CFTCSite", Value: "CFTC"}},
		},
		{
			Name:       "SEC",
			ListingURL: "https://www.sec.gov/news/pressreleases.rss",
			Strategy:   StrategySEC,
			Tags:       []record.Tag{{Key: "SECSite", Value: "SEC"}},
		},
	}
}

// Package extract turns fetched listing pages into ordered sequences of
// partial records. Each source strategy knows the page shape of one site
// family; missing elements degrade to sentinel values instead of errors, so a
// redesigned page never aborts a whole listing.
package extract

import (
	"net/url"

	"github.com/pevans/regsnap/sources"
)

// Item is a partial record lifted from a listing page: everything except the
// article content, which enrichment fills in afterwards. Fields hold sentinel
// values when the page did not yield real data.
type Item struct {
	Title string
	Link  string
	Date  string
}

// Extractor parses one fetched listing page. The listing URL is supplied so
// strategies can absolutize relative links. Implementations return an error
// only when the page itself cannot be parsed; an unexpected DOM shape yields
// sentinel-valued items or an empty slice.
type Extractor interface {
	Extract(page []byte, listing *url.URL) ([]Item, error)
}

// ForStrategy returns the extractor for a strategy identifier. ok is false
// for identifiers outside the supported set; callers treat that as an empty
// listing, not a failure.
func ForStrategy(s sources.Strategy) (Extractor, bool) {
	switch s {
	case sources.StrategyCSA:
		return csaExtractor{}, true
	case sources.StrategyFCA:
		return fcaExtractor{}, true
	case sources.StrategyCFTC:
		return cftcExtractor{}, true
	case sources.StrategySEC:
		return secExtractor{}, true
	}
	return nil, false
}

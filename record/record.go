// Package record defines the normalized press-release record shape shared by
// every extraction strategy, along with the sentinel values that stand in for
// missing data.
package record

// Sentinel values substituted when a page does not yield real data. Consumers
// detect degraded extraction by comparing against these exact strings, so they
// must never change.
const (
	NoTitle = "No Title"
	NoLink  = "No Link"
	NoDate  = "No Date"

	// NoContentFound marks a record whose link was the NoLink sentinel, so
	// enrichment was skipped without a network call.
	NoContentFound = "No Content Found"

	// ContentFetchError marks a record whose article fetch failed.
	ContentFetchError = "Error fetching content"

	// NoContentAvailable marks a record whose article page had no matching
	// content selector for its host.
	NoContentAvailable = "No Content Available"
)

// Record is one press release lifted from a listing page. All four fields are
// always present; missing data is represented by sentinel strings, never by
// omission, so consumers do not branch on absent keys.
type Record struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// Degraded reports whether any field of r holds a sentinel instead of real
// data.
func (r Record) Degraded() bool {
	if r.Title == NoTitle || r.Link == NoLink || r.Date == NoDate {
		return true
	}
	switch r.Content {
	case NoContentFound, ContentFetchError, NoContentAvailable:
		return true
	}
	return false
}

// Tag is one ordered key/value pair attached to a stored artifact.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

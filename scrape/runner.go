// Package scrape orchestrates runs: each source gets a bounded number of
// attempts at the two-stage pipeline (listing fetch and extraction, then
// per-record content enrichment), and the first attempt that produces records
// commits exactly one artifact to the sink. Sources fail independently; no
// error here is ever fatal to a run.
package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pevans/regsnap/enrich"
	"github.com/pevans/regsnap/extract"
	"github.com/pevans/regsnap/fetch"
	"github.com/pevans/regsnap/record"
	"github.com/pevans/regsnap/sink"
	"github.com/pevans/regsnap/sources"
)

// ErrNoRecords signals a listing page that fetched and parsed cleanly but
// yielded zero items. The retry loop consumes it as a failed attempt; it
// never escapes a run.
var ErrNoRecords = errors.New("no records extracted")

// Defaults applied by Config.withDefaults.
const (
	DefaultAttempts          = 3
	DefaultSourceConcurrency = 1
	DefaultEnrichConcurrency = 4
)

// Config bounds a runner's retries and fan-out. Zero values take the
// defaults.
type Config struct {
	// Attempts is the retry ceiling per source.
	Attempts int

	// SourceConcurrency is how many sources scrape at once.
	SourceConcurrency int

	// EnrichConcurrency is how many article fetches run at once within a
	// single source, sized to stay under a host's tolerance.
	EnrichConcurrency int
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.SourceConcurrency <= 0 {
		c.SourceConcurrency = DefaultSourceConcurrency
	}
	if c.EnrichConcurrency <= 0 {
		c.EnrichConcurrency = DefaultEnrichConcurrency
	}
	return c
}

// Status is the terminal state of one source in one run.
type Status string

const (
	// StatusSucceeded means an artifact was committed for the source.
	StatusSucceeded Status = "succeeded"

	// StatusExhausted means every attempt failed to produce records and
	// nothing was written.
	StatusExhausted Status = "exhausted"

	// StatusNotCommitted means extraction produced records but the
	// artifact write failed. The write is not retried.
	StatusNotCommitted Status = "not-committed"
)

// SourceResult describes how one source fared.
type SourceResult struct {
	Source   string
	Strategy sources.Strategy
	Status   Status
	Attempts int
	Records  int
	Degraded int
	Key      string
	Err      error
}

// Report summarizes one run across all sources. Results preserve registry
// order regardless of scheduling.
type Report struct {
	RunID    uuid.UUID
	Started  time.Time
	Finished time.Time
	Results  []SourceResult
}

// Succeeded counts sources that committed an artifact.
func (rep *Report) Succeeded() int {
	n := 0
	for _, res := range rep.Results {
		if res.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// Failed counts sources that finished without a committed artifact.
func (rep *Report) Failed() int {
	return len(rep.Results) - rep.Succeeded()
}

// Runner drives runs. Safe for concurrent use, though runs are normally
// serialized by the caller.
type Runner struct {
	fetcher  *fetch.Fetcher
	enricher *enrich.Enricher
	store    sink.Sink
	log      *log.Logger
	cfg      Config
}

// New creates a Runner. A nil logger discards output.
func New(fetcher *fetch.Fetcher, enricher *enrich.Enricher, store sink.Sink, logger *log.Logger, cfg Config) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		fetcher:  fetcher,
		enricher: enricher,
		store:    store,
		log:      logger,
		cfg:      cfg.withDefaults(),
	}
}

// Run scrapes every source once, with per-source retries, and reports the
// outcome. Source failures are isolated; the report always covers all
// sources.
func (r *Runner) Run(ctx context.Context, srcs []sources.Source) *Report {
	report := &Report{
		RunID:   uuid.New(),
		Started: time.Now().UTC(),
		Results: make([]SourceResult, len(srcs)),
	}
	runLog := r.log.With("run_id", report.RunID.String())
	runLog.Info("starting run", "sources", len(srcs))

	sem := make(chan struct{}, r.cfg.SourceConcurrency)
	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, src sources.Source) {
			defer wg.Done()
			defer func() { <-sem }()
			report.Results[i] = r.runSource(ctx, runLog, src)
		}(i, src)
	}
	wg.Wait()

	report.Finished = time.Now().UTC()
	runLog.Info("run finished",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"duration", report.Finished.Sub(report.Started),
	)
	return report
}

// runSource walks one source through Attempting(n) until it succeeds or
// exhausts its attempts. At most one artifact is committed.
func (r *Runner) runSource(ctx context.Context, runLog *log.Logger, src sources.Source) SourceResult {
	srcLog := runLog.With("source", src.Name)
	result := SourceResult{Source: src.Name, Strategy: src.Strategy}

	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			srcLog.Error("run deadline reached, abandoning source", "error", err)
			result.Status = StatusExhausted
			result.Err = err
			return result
		}
		result.Attempts = attempt
		srcLog.Info("scraping listing", "url", src.ListingURL, "attempt", attempt, "max_attempts", r.cfg.Attempts)

		recs, err := r.scrapeOnce(ctx, srcLog, src)
		if err != nil {
			if errors.Is(err, ErrNoRecords) {
				srcLog.Warn("listing yielded no records", "attempt", attempt)
			} else {
				srcLog.Error("attempt failed", "attempt", attempt, "error", err)
			}
			result.Err = err
			continue
		}

		result.Records = len(recs)
		for _, rec := range recs {
			if rec.Degraded() {
				result.Degraded++
			}
		}
		if result.Degraded > 0 {
			srcLog.Warn("records carry sentinel values", "degraded", result.Degraded, "total", result.Records)
		}

		return r.commit(ctx, srcLog, src, recs, result)
	}

	srcLog.Error("all attempts exhausted, no artifact written", "attempts", r.cfg.Attempts)
	result.Status = StatusExhausted
	return result
}

// commit serializes the record set and writes it exactly once. A failed
// write is logged and not retried; a failed tag call is logged and
// swallowed.
func (r *Runner) commit(ctx context.Context, srcLog *log.Logger, src sources.Source, recs []record.Record, result SourceResult) SourceResult {
	body, err := json.MarshalIndent(recs, "", "    ")
	if err != nil {
		srcLog.Error("failed to serialize record set", "error", err)
		result.Status = StatusNotCommitted
		result.Err = err
		return result
	}

	key := sink.ArtifactKey(string(src.Strategy), time.Now())
	if err := r.store.Put(ctx, key, body); err != nil {
		srcLog.Error("failed to store artifact", "key", key, "error", err)
		result.Status = StatusNotCommitted
		result.Err = err
		return result
	}

	if err := r.store.Tag(ctx, key, src.Tags); err != nil {
		srcLog.Warn("failed to tag artifact", "key", key, "error", err)
	}

	srcLog.Info("artifact stored", "key", key, "records", result.Records)
	result.Status = StatusSucceeded
	result.Key = key
	result.Err = nil
	return result
}

// scrapeOnce performs a single attempt: fetch the listing, extract partial
// records, then enrich each one with article content.
func (r *Runner) scrapeOnce(ctx context.Context, srcLog *log.Logger, src sources.Source) ([]record.Record, error) {
	extractor, ok := extract.ForStrategy(src.Strategy)
	if !ok {
		srcLog.Warn("unknown extraction strategy", "strategy", string(src.Strategy))
		return nil, ErrNoRecords
	}

	listing, err := url.Parse(src.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL %s: %w", src.ListingURL, err)
	}

	page, err := r.fetcher.Fetch(ctx, src.ListingURL)
	if err != nil {
		return nil, err
	}

	items, err := extractor.Extract(page, listing)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoRecords
	}

	return r.enrichAll(ctx, items), nil
}

// enrichAll fans article fetches out over a bounded pool, assigning results
// by index so the record set keeps the listing page's document order.
func (r *Runner) enrichAll(ctx context.Context, items []extract.Item) []record.Record {
	recs := make([]record.Record, len(items))
	sem := make(chan struct{}, r.cfg.EnrichConcurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item extract.Item) {
			defer wg.Done()
			defer func() { <-sem }()
			recs[i] = record.Record{
				Title:   item.Title,
				Link:    item.Link,
				Date:    item.Date,
				Content: r.enricher.Content(ctx, item.Link),
			}
		}(i, item)
	}
	wg.Wait()
	return recs
}

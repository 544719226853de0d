// Package sink persists run artifacts. A Sink stores an opaque body under a
// timestamped key and attaches ordered tags in a second call, mirroring the
// write-then-tag contract of object storage.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/pevans/regsnap/record"
)

// keyPrefix roots every artifact key.
const keyPrefix = "regulatory-scraped-data"

// Sink is the storage backend for run artifacts. Put and Tag are separate
// calls by contract: a failed Tag never undoes a successful Put.
type Sink interface {
	Put(ctx context.Context, key string, body []byte) error
	Tag(ctx context.Context, key string, tags []record.Tag) error
}

// ArtifactKey derives the storage key for one source's artifact from its
// strategy identifier and the moment of the write. The timestamp is always
// rendered in UTC.
func ArtifactKey(strategy string, ts time.Time) string {
	stamp := ts.UTC().Format("2006-01-02_15-04-05")
	return fmt.Sprintf("%s/%s/%s_%s_data.json", keyPrefix, strategy, strategy, stamp)
}

// StorageError is a failed sink operation, carrying the operation name and
// the key involved.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

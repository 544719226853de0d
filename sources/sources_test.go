package sources

import (
	"strings"
	"testing"

	"github.com/pevans/regsnap/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault_Registry verifies the shape of the built-in registry: every
// source has a name, an absolute listing URL, a known strategy, and at least
// one tag.
func TestDefault_Registry(t *testing.T) {
	srcs := Default()
	require.Len(t, srcs, 4, "registry should define four sources")

	seen := make(map[Strategy]bool)
	for _, src := range srcs {
		assert.NotEmpty(t, src.Name, "source name should be set")
		assert.True(t, strings.HasPrefix(src.ListingURL, "https://"),
			"listing URL should be absolute: %s", src.ListingURL)
		assert.True(t, Known(src.Strategy), "strategy %q should be known", src.Strategy)
		assert.NotEmpty(t, src.Tags, "source %s should carry tags", src.Name)
		assert.False(t, seen[src.Strategy], "strategy %q should appear once", src.Strategy)
		seen[src.Strategy] = true
	}
}

// TestDefault_ReturnsCopy verifies that mutating one returned registry does
// not leak into the next.
func TestDefault_ReturnsCopy(t *testing.T) {
	first := Default()
	first[0].Name = "mutated"
	first[0].Tags[0] = record.Tag{Key: "mutated", Value: "mutated"}

	second := Default()
	assert.Equal(t, "CSA", second[0].Name, "registry should not retain mutations")
	assert.Equal(t, "CSASite", second[0].Tags[0].Key, "tag slices should not be shared")
}

// TestKnown_UnknownStrategy verifies that identifiers outside the closed set
// are rejected.
func TestKnown_UnknownStrategy(t *testing.T) {
	assert.False(t, Known(Strategy("finra")), "unlisted strategy should be unknown")
	assert.False(t, Known(Strategy("")), "empty strategy should be unknown")
}

package util

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDPrefix(t *testing.T) {
	id := NewID("usr")
	require.Len(t, id, 4+26)
	assert.Equal(t, "usr_", id[:4])

	bare := NewID("")
	assert.Len(t, bare, 26)
}

func TestNewIDMonotonic(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = NewID("otp")
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, sorted, ids, "IDs generated in sequence must sort in generation order")
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID("doc")
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

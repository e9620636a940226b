package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ident(s string) string { return s }

func TestCollectionMergeDeduplicates(t *testing.T) {
	c := NewCollection(ident, 0)
	assert.Equal(t, 3, c.Merge([]string{"A", "B", "C"}))
	assert.Equal(t, 2, c.Merge([]string{"C", "D", "E"}))
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, c.Items())
}

func TestCollectionMergeDuplicatesWithinPage(t *testing.T) {
	c := NewCollection(ident, 0)
	assert.Equal(t, 2, c.Merge([]string{"A", "A", "B"}))
	assert.Equal(t, []string{"A", "B"}, c.Items())
}

func TestCollectionEvictsOldest(t *testing.T) {
	c := NewCollection(ident, 3)
	c.Merge([]string{"A", "B"})
	c.Merge([]string{"C", "D", "E"})

	assert.Equal(t, []string{"C", "D", "E"}, c.Items())
	assert.False(t, c.Contains("A"))
	assert.True(t, c.Contains("E"))
	assert.Equal(t, 3, c.Max())
}

func TestCollectionAtAndReset(t *testing.T) {
	c := NewCollection(ident, 0)
	c.Merge([]string{"x", "y"})

	v, ok := c.At(1)
	require.True(t, ok)
	assert.Equal(t, "y", v)
	_, ok = c.At(2)
	assert.False(t, ok)
	_, ok = c.At(-1)
	assert.False(t, ok)

	c.Reset()
	assert.Zero(t, c.Len())
	assert.False(t, c.Contains("x"))
}

func TestCollectionItemsIsCopy(t *testing.T) {
	c := NewCollection(ident, 0)
	c.Merge([]string{"a"})
	items := c.Items()
	items[0] = "mutated"
	v, _ := c.At(0)
	assert.Equal(t, "a", v)
}

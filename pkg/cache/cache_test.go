package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertRetrieve(t *testing.T) {
	c := NewCache(10)

	_, ok := c.Retrieve("a")
	assert.False(t, ok)

	c.Insert("a", "value-a", 2)
	c.Insert("b", "value-b", 3)

	value, ok := c.Retrieve("a")
	require.True(t, ok)
	assert.Equal(t, "value-a", value)
	assert.Equal(t, 5, c.Weight())
	assert.Equal(t, 2, c.Len())

	// Replacing an entry updates its weight
	c.Insert("a", "value-a2", 4)
	value, ok = c.Retrieve("a")
	require.True(t, ok)
	assert.Equal(t, "value-a2", value)
	assert.Equal(t, 7, c.Weight())
	assert.Equal(t, 2, c.Len())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(3)

	c.Insert("a", 1, 1)
	c.Insert("b", 2, 1)
	c.Insert("c", 3, 1)

	// Touch a, so b is the oldest
	_, ok := c.Retrieve("a")
	require.True(t, ok)

	c.Insert("d", 4, 1)
	_, ok = c.Retrieve("b")
	assert.False(t, ok)
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Retrieve(key)
		assert.True(t, ok, key)
	}

	// A heavy entry evicts as many as needed
	c.Insert("e", 5, 3)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.Weight())

	// An entry over budget is never stored
	c.Insert("f", 6, 4)
	_, ok = c.Retrieve("f")
	assert.False(t, ok)
	_, ok = c.Retrieve("e")
	assert.True(t, ok)
}

func TestCache_RemoveAndClear(t *testing.T) {
	c := NewCache(10)
	c.Insert("a", 1, 1)
	c.Insert("b", 2, 2)

	c.Remove("a")
	c.Remove("missing")
	_, ok := c.Retrieve("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Weight())

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Weight())
	_, ok = c.Retrieve("b")
	assert.False(t, ok)
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(100)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				key := fmt.Sprintf("%d-%d", worker, j%50)
				c.Insert(key, j, 1)
				c.Retrieve(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Weight(), 100)
	assert.Equal(t, c.Weight(), c.Len())
}

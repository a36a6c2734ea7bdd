package identity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct{ name string }

func TestNewTempID(t *testing.T) {
	a, b := NewTempID(), NewTempID()
	assert.NotEqual(t, a, b)
	assert.True(t, IsTemp(a))
	assert.False(t, IsTemp("42"))
}

func TestRegistryRealizeMovesEntry(t *testing.T) {
	r := NewRegistry[*item]()
	it := &item{name: "content"}
	r.PutTemp("tmp-1", it)

	got, ok := r.Realize("tmp-1", "42")
	require.True(t, ok)
	assert.Same(t, it, got)

	stable, temp := r.Len()
	assert.Equal(t, 1, stable)
	assert.Equal(t, 0, temp)

	v, ok := r.Get("42")
	require.True(t, ok)
	assert.Same(t, it, v)

	_, ok = r.Get("tmp-1")
	assert.False(t, ok)
}

func TestRegistryRealizeTwiceKeepsSingleEntry(t *testing.T) {
	r := NewRegistry[*item]()
	it := &item{}
	r.PutTemp("tmp-1", it)

	_, ok := r.Realize("tmp-1", "42")
	require.True(t, ok)
	got, ok := r.Realize("tmp-1", "42")
	require.True(t, ok)
	assert.Same(t, it, got)

	stable, temp := r.Len()
	assert.Equal(t, 1, stable)
	assert.Equal(t, 0, temp)
}

func TestRegistryRealizeUnknown(t *testing.T) {
	r := NewRegistry[*item]()
	_, ok := r.Realize("tmp-x", "7")
	assert.False(t, ok)
}

func TestRegistryGetOrCreateReturnsSameInstance(t *testing.T) {
	r := NewRegistry[*item]()

	var wg sync.WaitGroup
	results := make([]*item, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrCreate("page:1", func() *item { return &item{} })
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Same(t, results[0], got)
	}
}

func TestRegistryRemoveAndClear(t *testing.T) {
	r := NewRegistry[*item]()
	r.Put("1", &item{})
	r.PutTemp("tmp-2", &item{})

	r.Remove("1")
	_, ok := r.Get("1")
	assert.False(t, ok)

	r.Clear()
	stable, temp := r.Len()
	assert.Zero(t, stable)
	assert.Zero(t, temp)
}

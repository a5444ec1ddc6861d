package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/search/internal/cache"
	"inkwell/search/internal/index"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint(index.TypePost, "laravel guide", Filters{Category: "Tutorials"}, 60, 20, 0)
	b := Fingerprint(index.TypePost, "laravel guide", Filters{Category: "Tutorials"}, 60, 20, 0)
	assert.Equal(t, a, b)
	assert.Contains(t, a, resultKeyPrefix)
}

func TestFingerprintVariesByInput(t *testing.T) {
	base := Fingerprint(index.TypePost, "laravel", Filters{}, 60, 20, 0)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	variants := []string{
		Fingerprint(index.TypeTag, "laravel", Filters{}, 60, 20, 0),
		Fingerprint(index.TypePost, "laravel guide", Filters{}, 60, 20, 0),
		Fingerprint(index.TypePost, "laravel", Filters{Category: "DevOps"}, 60, 20, 0),
		Fingerprint(index.TypePost, "laravel", Filters{Author: "Jane"}, 60, 20, 0),
		Fingerprint(index.TypePost, "laravel", Filters{TagIDs: []int64{1}}, 60, 20, 0),
		Fingerprint(index.TypePost, "laravel", Filters{From: &from}, 60, 20, 0),
		Fingerprint(index.TypePost, "laravel", Filters{}, 70, 20, 0),
		Fingerprint(index.TypePost, "laravel", Filters{}, 60, 10, 0),
		Fingerprint(index.TypePost, "laravel", Filters{}, 60, 20, 10),
	}
	for i, v := range variants {
		assert.NotEqual(t, base, v, "variant %d collided with base", i)
	}
}

func TestResultCacheRoundTrip(t *testing.T) {
	rc := NewResultCache(cache.NewMemory(), time.Minute, true)
	key := Fingerprint(index.TypePost, "laravel", Filters{}, 60, 20, 0)

	resp := Response{
		Results: []Result{{ID: 1, Type: index.TypePost, Title: "Laravel Testing Guide", Score: 95}},
		Total:   1,
		Query:   "laravel",
	}
	rc.Put(context.Background(), key, resp)

	got, ok := rc.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, resp.Results, got.Results)
	assert.Equal(t, resp.Total, got.Total)
}

func TestResultCacheDisabled(t *testing.T) {
	backend := cache.NewMemory()
	rc := NewResultCache(backend, time.Minute, false)
	key := Fingerprint(index.TypePost, "laravel", Filters{}, 60, 20, 0)

	rc.Put(context.Background(), key, Response{Total: 1})
	assert.Equal(t, 0, backend.Len())

	_, ok := rc.Get(context.Background(), key)
	assert.False(t, ok)
}

func TestResultCacheMissOnAbsentKey(t *testing.T) {
	rc := NewResultCache(cache.NewMemory(), time.Minute, true)
	_, ok := rc.Get(context.Background(), resultKeyPrefix+"missing")
	assert.False(t, ok)
}

func TestResultCacheCorruptPayloadIsMiss(t *testing.T) {
	backend := cache.NewMemory()
	rc := NewResultCache(backend, time.Minute, true)
	key := Fingerprint(index.TypePost, "laravel", Filters{}, 60, 20, 0)

	require.NoError(t, backend.Set(context.Background(), key, []byte("{not json"), 0))

	_, ok := rc.Get(context.Background(), key)
	assert.False(t, ok)
}

func TestResultCacheInvalidateAll(t *testing.T) {
	backend := cache.NewMemory()
	rc := NewResultCache(backend, time.Minute, true)

	rc.Put(context.Background(), Fingerprint(index.TypePost, "a", Filters{}, 60, 20, 0), Response{})
	rc.Put(context.Background(), Fingerprint(index.TypeTag, "b", Filters{}, 60, 20, 0), Response{})
	require.NoError(t, backend.Set(context.Background(), "index:posts", []byte("[]"), 0))

	rc.InvalidateAll(context.Background())

	// Only result entries are dropped; index snapshots survive.
	assert.Equal(t, 1, backend.Len())
	_, err := backend.Get(context.Background(), "index:posts")
	assert.NoError(t, err)
}

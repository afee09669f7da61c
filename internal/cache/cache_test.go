package cache_test

import (
	"testing"
	"time"

	"github.com/ogero/moviebrowser/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InMemory(t *testing.T) {
	s, err := cache.OpenStore("", time.Hour, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, ok, err := s.Get("https://example.com/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("https://example.com/a.jpg", []byte("jpeg bytes")))

	data, ok, err := s.Get("https://example.com/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("jpeg bytes"), data)
}

func TestStore_OverwritesKey(t *testing.T) {
	s, err := cache.OpenStore("", 0, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set("k", []byte("one")))
	require.NoError(t, s.Set("k", []byte("two")))

	data, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), data)
}

func TestStore_PersistsInDir(t *testing.T) {
	dir := t.TempDir()

	s, err := cache.OpenStore(dir, time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte("kept")))
	require.NoError(t, s.Close())

	s, err = cache.OpenStore(dir, time.Hour, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	data, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("kept"), data)
}

package images_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ogero/moviebrowser/pkg/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const posterURL = "https://example.com/red.png"

func redPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeTransport struct {
	mu     sync.Mutex
	body   []byte
	status int
	err    error
	calls  int
}

func (f *fakeTransport) Get(context.Context, string) ([]byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.body, f.status, nil
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (s *mapStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mapStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func newLoader(t *testing.T, tr *fakeTransport, store images.ResponseStore) *images.Loader {
	t.Helper()
	l, err := images.NewLoader(tr, store, images.DefaultMemoryBytes, nil)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestLoader_DownloadsThenServesFromMemory(t *testing.T) {
	tr := &fakeTransport{body: redPNG(t, 2, 3), status: http.StatusOK}
	store := newMapStore()
	l := newLoader(t, tr, store)

	img, ok := l.Image(context.Background(), posterURL)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 2, 3), img.Bounds())
	assert.Contains(t, store.data, posterURL)

	tr.mu.Lock()
	tr.err = errors.New("offline")
	tr.mu.Unlock()

	again, ok := l.Image(context.Background(), posterURL)
	require.True(t, ok)
	assert.Equal(t, img.Bounds(), again.Bounds())
	assert.Equal(t, 1, tr.callCount())
}

func TestLoader_PrefersStoredResponse(t *testing.T) {
	tr := &fakeTransport{err: errors.New("offline")}
	store := newMapStore()
	store.data[posterURL] = redPNG(t, 1, 1)
	l := newLoader(t, tr, store)

	img, ok := l.Image(context.Background(), posterURL)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 1, 1), img.Bounds())
	assert.Zero(t, tr.callCount())
}

func TestLoader_UndecodableStoredResponseFallsBackToNetwork(t *testing.T) {
	tr := &fakeTransport{body: redPNG(t, 1, 1), status: http.StatusOK}
	store := newMapStore()
	store.data[posterURL] = []byte("not an image")
	l := newLoader(t, tr, store)

	_, ok := l.Image(context.Background(), posterURL)
	require.True(t, ok)
	assert.Equal(t, 1, tr.callCount())
}

func TestLoader_Failures(t *testing.T) {
	tests := []struct {
		name      string
		transport *fakeTransport
		store     *mapStore
	}{
		{"offline", &fakeTransport{err: errors.New("dial tcp: connection refused")}, newMapStore()},
		{"not found", &fakeTransport{body: []byte("nope"), status: http.StatusNotFound}, newMapStore()},
		{"not an image", &fakeTransport{body: []byte("<html></html>"), status: http.StatusOK}, newMapStore()},
		{"store failing", &fakeTransport{err: errors.New("offline")}, &mapStore{data: map[string][]byte{}, err: errors.New("closed")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLoader(t, tt.transport, tt.store)

			img, ok := l.Image(context.Background(), posterURL)
			assert.False(t, ok)
			assert.Nil(t, img)
			assert.Empty(t, tt.store.data)
		})
	}
}

func TestLoader_NilStore(t *testing.T) {
	tr := &fakeTransport{body: redPNG(t, 1, 1), status: http.StatusOK}
	l, err := images.NewLoader(tr, nil, images.DefaultMemoryBytes, nil)
	require.NoError(t, err)
	defer l.Close()

	_, ok := l.Image(context.Background(), posterURL)
	assert.True(t, ok)
}

func TestNewLoader_InvalidBudget(t *testing.T) {
	_, err := images.NewLoader(&fakeTransport{}, nil, 0, nil)
	assert.Error(t, err)
}

func TestLoader_OverHTTP(t *testing.T) {
	body := redPNG(t, 4, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/*", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	l, err := images.NewLoader(images.NewTransport(), newMapStore(), images.DefaultMemoryBytes, nil)
	require.NoError(t, err)
	defer l.Close()

	img, ok := l.Image(context.Background(), server.URL+"/poster.png")
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
}

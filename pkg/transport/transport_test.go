package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ogero/moviebrowser/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/list.json":
			_, _ = w.Write([]byte(`{"movies":[]}`))
		case "/big.json":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}
	}))
	defer server.Close()

	tr := transport.NewHTTPTransport(transport.WithMaxBodyBytes(32))

	t.Run("OK", func(t *testing.T) {
		body, status, err := tr.Get(context.Background(), server.URL+"/list.json")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, `{"movies":[]}`, string(body))
	})

	t.Run("Status Is Returned Not Raised", func(t *testing.T) {
		body, status, err := tr.Get(context.Background(), server.URL+"/missing.json")
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "boom", string(body))
	})

	t.Run("Body Too Large", func(t *testing.T) {
		_, _, err := tr.Get(context.Background(), server.URL+"/big.json")
		assert.ErrorIs(t, err, transport.ErrReadBeyondLimit)
	})
}

func TestHTTPTransport_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	tr := transport.NewHTTPTransport(transport.WithTimeout(2 * time.Second))
	_, status, err := tr.Get(context.Background(), addr+"/list.json")
	assert.Error(t, err)
	assert.Zero(t, status)
}

package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ipwatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newFetcher(t *testing.T, providers ...string) *Fetcher {
	return New(&config.FetcherConfig{
		Providers: providers,
		Timeout:   2 * time.Second,
	}, zaptest.NewLogger(t))
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns trimmed IP from provider", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "text/plain", r.Header.Get("Accept"))
			_, _ = w.Write([]byte("203.0.113.10\n"))
		}))
		defer srv.Close()

		ip, err := newFetcher(t, srv.URL).Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.10", ip)
	})

	t.Run("falls back to next provider in order", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer bad.Close()

		good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("203.0.113.20"))
		}))
		defer good.Close()

		ip, err := newFetcher(t, bad.URL, good.URL).Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.20", ip)
	})

	t.Run("rejects non-IP response body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>not an ip</html>"))
		}))
		defer srv.Close()

		_, err := newFetcher(t, srv.URL).Fetch(ctx)
		assert.ErrorContains(t, err, "valid IP address")
	})

	t.Run("fails when all providers fail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newFetcher(t, srv.URL, srv.URL+"/other").Fetch(ctx)
		assert.ErrorContains(t, err, "all providers failed")
	})

	t.Run("fails without any providers", func(t *testing.T) {
		_, err := newFetcher(t).Fetch(ctx)
		assert.ErrorContains(t, err, "no providers configured")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		defer srv.Close()

		cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := newFetcher(t, srv.URL).Fetch(cancelCtx)
		assert.Error(t, err)
	})

	t.Run("accepts IPv6 response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("2001:db8::1"))
		}))
		defer srv.Close()

		ip, err := newFetcher(t, srv.URL).Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2001:db8::1", ip)
	})
}

package resolver

import (
	"context"
	"testing"
	"time"

	"ipwatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves from the hosts file", func(t *testing.T) {
		r := New(&config.DNSConfig{Timeout: 2 * time.Second}, zaptest.NewLogger(t))

		records, err := r.Resolve(ctx, "localhost")
		require.NoError(t, err)
		assert.Contains(t, records, "127.0.0.1")
	})

	t.Run("unreachable nameserver fails within the timeout", func(t *testing.T) {
		// Port 1 on loopback refuses connections
		r := New(&config.DNSConfig{
			Nameserver: "127.0.0.1:1",
			Timeout:    time.Second,
		}, zaptest.NewLogger(t))

		start := time.Now()
		_, err := r.Resolve(ctx, "example.org")
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("nameserver without port gets the DNS default", func(t *testing.T) {
		// Construction must not panic; the lookup itself needs no network
		r := New(&config.DNSConfig{
			Nameserver: "127.0.0.1",
			Timeout:    time.Second,
		}, zaptest.NewLogger(t))
		assert.NotNil(t, r)
	})
}

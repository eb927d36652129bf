package checker

import (
	"context"
	"errors"
	"testing"

	"ipwatch/internal/config"
	"ipwatch/internal/notify"
	"ipwatch/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeFetcher struct {
	ip  string
	err error
}

func (f *fakeFetcher) Fetch(context.Context) (string, error) {
	return f.ip, f.err
}

type fakeResolver struct {
	records []string
	err     error
}

func (r *fakeResolver) Resolve(context.Context, string) ([]string, error) {
	return r.records, r.err
}

type fakeStore struct {
	ip      string
	loadErr error
	saveErr error
	saves   []string
}

func (s *fakeStore) Load(context.Context) (string, error) {
	if s.loadErr != nil {
		return "", s.loadErr
	}
	if s.ip == "" {
		return "", state.ErrNoSavedIP
	}
	return s.ip, nil
}

func (s *fakeStore) Save(_ context.Context, ip string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves = append(s.saves, ip)
	s.ip = ip
	return nil
}

func (s *fakeStore) Close() error { return nil }

type fakeSender struct {
	events []*notify.Event
	err    error
}

func (n *fakeSender) Notify(_ context.Context, event *notify.Event) error {
	n.events = append(n.events, event)
	return n.err
}

func (n *fakeSender) Enabled() bool { return true }

func dnsConfig(domain string) *config.Config {
	return &config.Config{
		Mode: config.ModeDNS,
		DNS:  config.DNSConfig{Domain: domain},
	}
}

func changeConfig() *config.Config {
	return &config.Config{Mode: config.ModeChange}
}

func TestDNSMode(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	t.Run("IP in record set is in sync, no notification", func(t *testing.T) {
		sender := &fakeSender{}
		c := New(dnsConfig("example.org"), logger,
			&fakeFetcher{ip: "198.51.100.2"},
			&fakeResolver{records: []string{"198.51.100.1", "198.51.100.2"}},
			nil, sender)

		result, err := c.Run(ctx)
		require.NoError(t, err)
		assert.True(t, result.InSync)
		assert.Empty(t, sender.events)
	})

	t.Run("IP absent from record set sends exactly one notification", func(t *testing.T) {
		sender := &fakeSender{}
		c := New(dnsConfig("example.org"), logger,
			&fakeFetcher{ip: "203.0.113.10"},
			&fakeResolver{records: []string{"198.51.100.1", "198.51.100.2"}},
			nil, sender)

		result, err := c.Run(ctx)
		require.NoError(t, err)
		assert.False(t, result.InSync)

		require.Len(t, sender.events, 1)
		event := sender.events[0]
		assert.Equal(t, "203.0.113.10", event.CurrentIP)
		assert.Equal(t, []string{"198.51.100.1", "198.51.100.2"}, event.Records)
		assert.Contains(t, event.Message(), "203.0.113.10")
		assert.Contains(t, event.Message(), "198.51.100.1, 198.51.100.2")
	})

	t.Run("resolution failure aborts with ResolutionError", func(t *testing.T) {
		sender := &fakeSender{}
		c := New(dnsConfig("nosuchdomain.example"), logger,
			&fakeFetcher{ip: "203.0.113.10"},
			&fakeResolver{err: errors.New("NXDOMAIN")},
			nil, sender)

		_, err := c.Run(ctx)
		var rerr *ResolutionError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "nosuchdomain.example", rerr.Domain)
		assert.Empty(t, sender.events)
	})
}

func TestChangeMode(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	t.Run("first run saves without notifying", func(t *testing.T) {
		store := &fakeStore{}
		sender := &fakeSender{}
		c := New(changeConfig(), logger,
			&fakeFetcher{ip: "203.0.113.10"}, nil, store, sender)

		result, err := c.Run(ctx)
		require.NoError(t, err)
		assert.True(t, result.FirstRun)
		assert.True(t, result.InSync)
		assert.Equal(t, []string{"203.0.113.10"}, store.saves)
		assert.Empty(t, sender.events)
	})

	t.Run("unchanged IP is silent and does not rewrite state", func(t *testing.T) {
		store := &fakeStore{ip: "203.0.113.10"}
		sender := &fakeSender{}
		c := New(changeConfig(), logger,
			&fakeFetcher{ip: "203.0.113.10"}, nil, store, sender)

		result, err := c.Run(ctx)
		require.NoError(t, err)
		assert.True(t, result.InSync)
		assert.Empty(t, store.saves)
		assert.Empty(t, sender.events)
	})

	t.Run("changed IP notifies once with old and new, then persists", func(t *testing.T) {
		store := &fakeStore{ip: "203.0.113.10"}
		sender := &fakeSender{}
		c := New(changeConfig(), logger,
			&fakeFetcher{ip: "203.0.113.20"}, nil, store, sender)

		result, err := c.Run(ctx)
		require.NoError(t, err)
		assert.False(t, result.InSync)

		require.Len(t, sender.events, 1)
		event := sender.events[0]
		assert.Equal(t, "203.0.113.10", event.PreviousIP)
		assert.Equal(t, "203.0.113.20", event.CurrentIP)

		assert.Equal(t, []string{"203.0.113.20"}, store.saves)
	})

	t.Run("persists the new IP even when notification fails", func(t *testing.T) {
		store := &fakeStore{ip: "203.0.113.10"}
		sender := &fakeSender{err: errors.New("push API down")}
		c := New(changeConfig(), logger,
			&fakeFetcher{ip: "203.0.113.20"}, nil, store, sender)

		_, err := c.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"203.0.113.20"}, store.saves)
	})

	t.Run("second run after a change is silent", func(t *testing.T) {
		store := &fakeStore{ip: "203.0.113.10"}
		sender := &fakeSender{}
		c := New(changeConfig(), logger,
			&fakeFetcher{ip: "203.0.113.20"}, nil, store, sender)

		_, err := c.Run(ctx)
		require.NoError(t, err)
		_, err = c.Run(ctx)
		require.NoError(t, err)

		// Notification on the first of the two runs only
		assert.Len(t, sender.events, 1)
	})

	t.Run("first-run save failure is a StorageError", func(t *testing.T) {
		store := &fakeStore{saveErr: errors.New("disk full")}
		sender := &fakeSender{}
		c := New(changeConfig(), logger,
			&fakeFetcher{ip: "203.0.113.10"}, nil, store, sender)

		_, err := c.Run(ctx)
		var serr *StorageError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "save", serr.Op)
		assert.Empty(t, sender.events)
	})

	t.Run("save failure after a change is a StorageError, notification already sent", func(t *testing.T) {
		store := &fakeStore{ip: "203.0.113.10", saveErr: errors.New("disk full")}
		sender := &fakeSender{}
		c := New(changeConfig(), logger,
			&fakeFetcher{ip: "203.0.113.20"}, nil, store, sender)

		_, err := c.Run(ctx)
		var serr *StorageError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "save", serr.Op)

		require.Len(t, sender.events, 1)
		assert.Equal(t, "203.0.113.20", sender.events[0].CurrentIP)
		assert.Empty(t, store.saves)
	})

	t.Run("unexpected load failure is a StorageError", func(t *testing.T) {
		store := &fakeStore{loadErr: errors.New("permission denied")}
		sender := &fakeSender{}
		c := New(changeConfig(), logger,
			&fakeFetcher{ip: "203.0.113.10"}, nil, store, sender)

		_, err := c.Run(ctx)
		var serr *StorageError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "load", serr.Op)
		assert.Empty(t, sender.events)
	})
}

func TestFetchFailure(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	t.Run("aborts before any state write or notification", func(t *testing.T) {
		store := &fakeStore{ip: "203.0.113.10"}
		sender := &fakeSender{}
		c := New(changeConfig(), logger,
			&fakeFetcher{err: errors.New("timeout")}, nil, store, sender)

		_, err := c.Run(ctx)
		var nerr *NetworkError
		require.ErrorAs(t, err, &nerr)
		assert.Empty(t, store.saves)
		assert.Empty(t, sender.events)
		assert.Equal(t, "203.0.113.10", store.ip)
	})
}

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordbin/config"
	"recordbin/domain/record"
	"recordbin/errors"
	"recordbin/events"
	"recordbin/logging"
	"recordbin/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("RECORDBIN_DATABASE_DSN", ":memory:")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func newApp(t *testing.T) *App {
	t.Helper()
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), Options{Logger: logging.NewNoopLogger()})
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestApp_TrashRecordsActivity(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	actor := record.Actor{ID: 5}

	id, err := store.NewClientStore(a.db).Insert(ctx, &record.Client{
		Base: record.Base{OwnerID: record.Ptr(actor.ID), CreatedAt: time.Now().UTC()},
		Name: "Acme",
	})
	require.NoError(t, err)

	ops, err := a.Operations(record.FamilyClient)
	require.NoError(t, err)
	require.NoError(t, ops.Trash(ctx, id, actor))

	entries, err := a.Activity().Recent(ctx, actor.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "client_deleted", entries[0].Type)
}

func TestApp_Operations(t *testing.T) {
	a := newApp(t)
	for _, f := range record.Families {
		ops, err := a.Operations(f)
		require.NoError(t, err)
		assert.Equal(t, f, ops.Kind())
	}
	_, err := a.Operations(record.Family("vendor"))
	assert.True(t, errors.IsValidation(err))
}

func TestApp_Router(t *testing.T) {
	a := newApp(t)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewTransport_Selection(t *testing.T) {
	cfg := config.EventsConfig{Transport: config.TransportRedis}
	_, err := newTransport(cfg, logging.NewNoopLogger())
	assert.Error(t, err, "redis 缺少地址")

	cfg.Redis.Addr = "localhost:6379"
	tr, err := newTransport(cfg, logging.NewNoopLogger())
	require.NoError(t, err)
	assert.NoError(t, tr.Close())

	tr, err = newTransport(config.EventsConfig{Transport: config.TransportNATS}, logging.NewNoopLogger())
	require.NoError(t, err)
	assert.False(t, tr.Stats().Running)
}

type closingTransport struct {
	events.Transport
	subscribeErr error
	closed       int
}

func (c *closingTransport) Subscribe(events.Kind, events.Handler) error { return c.subscribeErr }

func (c *closingTransport) Close() error {
	c.closed++
	return nil
}

func stubTransport(t *testing.T, tr events.Transport) {
	t.Helper()
	prev := transportFactory
	transportFactory = func(config.EventsConfig, logging.Logger) (events.Transport, error) { return tr, nil }
	t.Cleanup(func() { transportFactory = prev })
}

func TestNew_ClosesTransportOnFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("snowflake", func(t *testing.T) {
		tr := &closingTransport{}
		stubTransport(t, tr)
		cfg := testConfig(t)
		cfg.Activity.Datacenter = 99

		_, err := New(ctx, cfg, Options{Logger: logging.NewNoopLogger()})
		require.Error(t, err)
		assert.Equal(t, 1, tr.closed)
	})

	t.Run("subscribe", func(t *testing.T) {
		tr := &closingTransport{subscribeErr: errors.NewError(errors.ErrCodeQueue, "subscribe refused")}
		stubTransport(t, tr)

		_, err := New(ctx, testConfig(t), Options{Consume: true, Logger: logging.NewNoopLogger()})
		require.Error(t, err)
		assert.Equal(t, 1, tr.closed)
	})
}

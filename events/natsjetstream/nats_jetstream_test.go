package natsjetstream

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordbin/domain/record"
	"recordbin/events"
)

func TestNames(t *testing.T) {
	tr := NewTransport(Config{})
	assert.Equal(t, "recordbin.record.trashed", tr.subjectName(events.KindTrashed))
	assert.Equal(t, "recordbin-record-trashed", tr.durableName(events.KindTrashed))
	assert.Equal(t, "RECORDBIN", tr.cfg.Stream)
}

func TestRetentionPolicy(t *testing.T) {
	assert.Equal(t, nats.WorkQueuePolicy, retentionPolicy(""))
	assert.Equal(t, nats.LimitsPolicy, retentionPolicy("Limits"))
	assert.Equal(t, nats.InterestPolicy, retentionPolicy("interest"))
}

func TestPublish_NotRunning(t *testing.T) {
	tr := NewTransport(Config{})
	e := events.New(events.KindTrashed, record.FamilyClient, 1, 1, record.Actor{ID: 1}, "", time.Now())
	require.Error(t, tr.Publish(context.Background(), e))
}

func TestSubscribe_ExpandsWildcard(t *testing.T) {
	tr := NewTransport(Config{})
	h := events.HandlerFunc(func(context.Context, events.Event) error { return nil })
	require.NoError(t, tr.Subscribe(events.KindAny, h))

	st := tr.Stats()
	assert.False(t, st.Running)
	assert.Equal(t, 3, st.HandlerCount)
	assert.ElementsMatch(t, []string{"record.purged", "record.restored", "record.trashed"}, st.Kinds)
}

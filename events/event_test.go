package events

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordbin/domain/record"
	"recordbin/patterns/retry"
)

func sampleEvent() Event {
	ts := time.Unix(0, 1700000000000000000)
	return New(KindTrashed, record.FamilyInvoice, 42, 7, record.Actor{ID: 3}, "INV-001 · Acme", ts)
}

func TestNew(t *testing.T) {
	e := sampleEvent()
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, int64(3), e.ActorID)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())
	assert.NotEqual(t, e.ID, sampleEvent().ID)
}

func TestMarshalUnmarshal(t *testing.T) {
	e := sampleEvent()
	data, err := Marshal(e)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, e.Kind, decoded.Kind)
	assert.Equal(t, e.Family, decoded.Family)
	assert.Equal(t, e.RecordID, decoded.RecordID)
	assert.Equal(t, e.ArchiveID, decoded.ArchiveID)
	assert.Equal(t, e.Label, decoded.Label)
	assert.Equal(t, e.OccurredAt.UnixNano(), decoded.OccurredAt.UnixNano())
}

func TestUnmarshal_Rejects(t *testing.T) {
	_, err := Unmarshal([]byte(`{`))
	require.Error(t, err)

	_, err = Unmarshal([]byte(`{"family":"client"}`))
	require.Error(t, err)

	_, err = Unmarshal([]byte(`{"kind":"record.trashed","family":"order"}`))
	require.Error(t, err)
}

func TestValues_StringFields(t *testing.T) {
	e := sampleEvent()
	values := Values(e)

	// Redis 读回的字段值都是字符串
	asStrings := make(map[string]any, len(values))
	for k, v := range values {
		switch x := v.(type) {
		case int64:
			asStrings[k] = strconv.FormatInt(x, 10)
		default:
			asStrings[k] = x
		}
	}

	decoded, err := FromValues(asStrings)
	require.NoError(t, err)
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, e.RecordID, decoded.RecordID)
	assert.Equal(t, e.ActorID, decoded.ActorID)
	assert.Equal(t, e.OccurredAt.UnixNano(), decoded.OccurredAt.UnixNano())

	asStrings["record_id"] = "x"
	_, err = FromValues(asStrings)
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	h1 := HandlerFunc(func(context.Context, Event) error { return nil })
	h2 := &namedHandler{}

	assert.True(t, r.Add(KindTrashed, h2))
	assert.False(t, r.Add(KindTrashed, h1))
	r.Add(KindAny, h1)

	assert.Len(t, r.Match(KindTrashed), 3)
	assert.Len(t, r.Match(KindPurged), 1)
	assert.Len(t, r.Match(KindAny), 1)

	assert.False(t, r.Remove(KindTrashed, h2))
	assert.Len(t, r.Match(KindTrashed), 2)
	assert.Equal(t, []Kind{KindAny, KindTrashed}, r.Kinds())

	st := r.Stats(true)
	assert.Equal(t, 2, st.HandlerCount)
}

func TestRetryingPublisher(t *testing.T) {
	cfg := retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1}

	flaky := &flakyPublisher{failures: 2}
	p := NewRetryingPublisher(flaky, cfg, nil)
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, 3, flaky.calls)
	assert.Len(t, flaky.published, 1)

	broken := &flakyPublisher{failures: 10}
	p = NewRetryingPublisher(broken, cfg, nil)
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, 3, broken.calls)
	assert.Empty(t, broken.published)
}

type namedHandler struct{}

func (*namedHandler) Handle(context.Context, Event) error { return nil }
func (*namedHandler) Name() string                        { return "named" }

type flakyPublisher struct {
	failures  int
	calls     int
	published []Event
}

func (p *flakyPublisher) Publish(_ context.Context, e Event) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("unavailable")
	}
	p.published = append(p.published, e)
	return nil
}

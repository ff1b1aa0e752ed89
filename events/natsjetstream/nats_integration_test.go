package natsjetstream

import (
	"context"
	"os"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"

	"recordbin/domain/record"
	"recordbin/events"
)

const (
	skipIntegrationTests = "RECORDBIN_SKIP_INTEGRATION_TESTS"
	natsImg              = "nats:2.11.6-alpine"
)

type JetStreamSuite struct {
	suite.Suite
	ctx       context.Context
	container *nats.NATSContainer
	nc        *natsgo.Conn
}

func (s *JetStreamSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = nats.Run(s.ctx, natsImg)
	require.NoError(s.T(), err, "Failed to run NATS container")

	url, err := s.container.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	s.nc, err = natsgo.Connect(url)
	require.NoError(s.T(), err, "Failed to connect to NATS")
}

func (s *JetStreamSuite) TearDownSuite() {
	if s.nc != nil {
		s.nc.Close()
	}
	if s.container != nil {
		_ = testcontainers.TerminateContainer(s.container)
	}
}

func TestJetStreamIntegration(t *testing.T) {
	if testing.Short() || os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, new(JetStreamSuite))
}

func (s *JetStreamSuite) TestPublishConsume() {
	tr := NewTransport(Config{Conn: s.nc, Stream: "RECORDBIN_IT", SubjectPrefix: "recordbin-it."})

	received := make(chan events.Event, 1)
	s.Require().NoError(tr.Subscribe(events.KindRestored, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		received <- e
		return nil
	})))
	s.Require().NoError(tr.Start(s.ctx))
	defer tr.Close()

	want := events.New(events.KindRestored, record.FamilyBusinessProfile, 5, 11, record.Actor{ID: 8}, "Acme Ltd", time.Now())
	s.Require().NoError(tr.Publish(s.ctx, want))

	select {
	case got := <-received:
		s.Equal(want.ID, got.ID)
		s.Equal(want.Family, got.Family)
		s.Equal(want.ArchiveID, got.ArchiveID)
	case <-time.After(10 * time.Second):
		s.Fail("event not delivered")
	}
	s.True(tr.Stats().Running)
}

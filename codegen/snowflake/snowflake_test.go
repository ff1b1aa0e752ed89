package snowflake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator_Range(t *testing.T) {
	tests := []struct {
		name         string
		datacenterID int64
		workerID     int64
		expectError  bool
	}{
		{"有效值", 1, 1, false},
		{"边界值-最小", 0, 0, false},
		{"边界值-最大", 31, 31, false},
		{"datacenterID 为负", -1, 1, true},
		{"datacenterID 超过最大值", 32, 1, true},
		{"workerID 为负", 1, -1, true},
		{"workerID 超过最大值", 1, 32, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.datacenterID, tt.workerID)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNextID_ParseRoundTrip(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	g, err := NewGenerator(3, 7, WithClock(func() time.Time { return at }))
	require.NoError(t, err)

	first, err := g.NextID()
	require.NoError(t, err)
	second, err := g.NextID()
	require.NoError(t, err)
	assert.Greater(t, second, first)

	p := Parse(second)
	assert.True(t, at.Equal(p.Time))
	assert.Equal(t, int64(3), p.DatacenterID)
	assert.Equal(t, int64(7), p.WorkerID)
	assert.Equal(t, int64(1), p.Sequence)
}

func TestNextID_ClockBackwards(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	g, err := NewGenerator(1, 1, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	_, err = g.NextID()
	require.NoError(t, err)

	now = now.Add(-time.Second)
	_, err = g.NextID()
	assert.ErrorIs(t, err, ErrClockBackwards)
}

func TestNextID_ConcurrentUnique(t *testing.T) {
	g, err := NewGenerator(1, 1)
	require.NoError(t, err)

	const workers, perWorker = 8, 500
	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := g.NextID()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

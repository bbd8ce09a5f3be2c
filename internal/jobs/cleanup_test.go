package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockAbandoner struct {
	calls      atomic.Int64
	count      int64
	lastCutoff atomic.Value
}

func (m *mockAbandoner) AbandonStale(ctx context.Context, startedBefore time.Time) (int64, error) {
	m.calls.Add(1)
	m.lastCutoff.Store(startedBefore)
	return m.count, nil
}

type mockDeliverer struct {
	calls atomic.Int64
	count int64
}

func (m *mockDeliverer) DeliverDue(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	return m.count, nil
}

func TestCleanupJob(t *testing.T) {
	t.Run("creates job with correct interval", func(t *testing.T) {
		job := NewCleanupJob(nil, 24*time.Hour, 5*time.Minute)

		assert.NotNil(t, job)
		assert.Equal(t, 5*time.Minute, job.interval)
		assert.Equal(t, 24*time.Hour, job.maxAge)
	})

	t.Run("runs cleanup on start", func(t *testing.T) {
		sessions := &mockAbandoner{count: 3}
		job := NewCleanupJob(sessions, 24*time.Hour, time.Hour)

		job.Start()
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		assert.GreaterOrEqual(t, sessions.calls.Load(), int64(1))
	})

	t.Run("cutoff is maxAge in the past", func(t *testing.T) {
		sessions := &mockAbandoner{}
		job := NewCleanupJob(sessions, 24*time.Hour, time.Hour)

		job.Start()
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		cutoff, ok := sessions.lastCutoff.Load().(time.Time)
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(-24*time.Hour), cutoff, time.Minute)
	})
}

func TestNotificationJob(t *testing.T) {
	t.Run("polls on interval", func(t *testing.T) {
		deliverer := &mockDeliverer{count: 1}
		job := NewNotificationJob(deliverer, 10*time.Millisecond)

		job.Start()
		time.Sleep(60 * time.Millisecond)
		job.Stop()

		assert.GreaterOrEqual(t, deliverer.calls.Load(), int64(2))
	})

	t.Run("starts and stops without panic", func(t *testing.T) {
		job := NewNotificationJob(&mockDeliverer{}, time.Hour)
		job.Start()
		job.Stop()
	})
}

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/issue-tracker/internal/events"
)

func TestWorkerDeliversAndDrainsOnStop(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var handled atomic.Int32
	dispatcher.Subscribe(events.EventIssueCreated, func(context.Context, events.Event) error {
		handled.Add(1)
		return nil
	})

	w := NewNotificationWorker(dispatcher, zap.NewNop(), 2, 16)
	w.Start(context.Background())
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Publish(context.Background(), events.NewEvent(events.EventIssueCreated, int64(i), "jdoe", time.Now(), nil)))
	}
	w.Stop()

	assert.Equal(t, int32(10), handled.Load())
	assert.ErrorIs(t, w.Publish(context.Background(), events.NewEvent(events.EventIssueCreated, 1, "jdoe", time.Now(), nil)), ErrStopped)
	w.Stop()
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})
	dispatcher.Subscribe(events.EventIssueCreated, func(context.Context, events.Event) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	w := NewNotificationWorker(dispatcher, zap.NewNop(), 1, 1)
	w.Start(context.Background())

	event := events.NewEvent(events.EventIssueCreated, 1, "jdoe", time.Now(), nil)
	require.NoError(t, w.Publish(context.Background(), event))
	<-started
	require.NoError(t, w.Publish(context.Background(), event))
	assert.ErrorIs(t, w.Publish(context.Background(), event), ErrQueueFull)

	close(release)
	w.Stop()
}

func TestWorkerSurvivesHandlerErrorsAndPanics(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var handled atomic.Int32
	dispatcher.Subscribe(events.EventIssueCreated, func(_ context.Context, e events.Event) error {
		handled.Add(1)
		if e.IssueID == 1 {
			panic("boom")
		}
		return errors.New("smtp down")
	})

	w := NewNotificationWorker(dispatcher, zap.NewNop(), 1, 4)
	w.Start(context.Background())
	require.NoError(t, w.Publish(context.Background(), events.NewEvent(events.EventIssueCreated, 1, "jdoe", time.Now(), nil)))
	require.NoError(t, w.Publish(context.Background(), events.NewEvent(events.EventIssueCreated, 2, "jdoe", time.Now(), nil)))
	w.Stop()

	assert.Equal(t, int32(2), handled.Load())
}

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/issue-tracker/internal/events"
)

var (
	// ErrQueueFull is returned when the notification backlog is saturated.
	ErrQueueFull = errors.New("notification queue full")
	// ErrStopped is returned for events published after Stop.
	ErrStopped = errors.New("notification worker stopped")
)

const handlerTimeout = 30 * time.Second

// NotificationWorker moves events off the request path: Publish enqueues
// without blocking and a fixed set of goroutines hands them to the dispatcher.
type NotificationWorker struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	workers    int
	queue      chan events.Event

	mu      sync.RWMutex
	stopped bool
	started bool
	wg      sync.WaitGroup
}

// NewNotificationWorker builds a worker with the given pool and queue sizes.
func NewNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger, workers, queueSize int) *NotificationWorker {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &NotificationWorker{
		dispatcher: dispatcher,
		logger:     logger,
		workers:    workers,
		queue:      make(chan events.Event, queueSize),
	}
}

// Start launches the worker goroutines. Handlers run under ctx's values but
// not its cancellation, so queued events still drain on Stop.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(base)
	}
}

// Publish enqueues an event. It never blocks.
func (w *NotificationWorker) Publish(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}

	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("notification dropped",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int64("issue_id", event.IssueID))
		return ErrQueueFull
	}
}

// Stop rejects new events and waits for queued ones to be handled.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for event := range w.queue {
		w.handle(ctx, event)
	}
}

func (w *NotificationWorker) handle(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("notification handler panicked", zap.Any("panic", r), zap.String("event_id", event.ID))
		}
	}()

	if err := w.dispatcher.Publish(ctx, event); err != nil {
		w.logger.Error("notification failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int64("issue_id", event.IssueID),
			zap.Error(err))
	}
}

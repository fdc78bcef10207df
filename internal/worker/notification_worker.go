package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/events"
	"github.com/spec-kit/epcr-service/internal/service"
)

const defaultQueueSize = 256

// Queue is an events.Dispatcher that hands published events to a background goroutine
// so request handlers never wait on notification delivery.
type Queue struct {
	inner  events.Dispatcher
	logger *zap.Logger
	ch     chan queued
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type queued struct {
	ctx   context.Context
	event events.Event
}

// NewQueue wraps inner. size <= 0 selects a default buffer.
func NewQueue(inner events.Dispatcher, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{inner: inner, logger: logger, ch: make(chan queued, size)}
	q.wg.Add(1)
	go q.run()
	return q
}

// Publish enqueues the event. When the buffer is full the event is dropped and logged.
func (q *Queue) Publish(ctx context.Context, event events.Event) error {
	// Handlers outlive the request, so detach from its cancellation.
	item := queued{ctx: context.WithoutCancel(ctx), event: event}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("event queue closed; dropping event", zap.String("event_type", string(event.Type)))
		return nil
	}
	select {
	case q.ch <- item:
	default:
		q.logger.Warn("event queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
	return nil
}

// Subscribe registers on the wrapped dispatcher.
func (q *Queue) Subscribe(eventType events.EventType, handler events.EventHandler) {
	q.inner.Subscribe(eventType, handler)
}

// Close stops accepting events and waits for queued ones to be delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for item := range q.ch {
		_ = q.inner.Publish(item.ctx, item.event)
	}
}

// StartNotificationWorker registers notification handlers on the dispatcher the
// notification service was built with.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

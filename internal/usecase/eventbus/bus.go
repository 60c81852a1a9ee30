package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"careerprep/internal/domain"
)

type queued struct {
	ctx   context.Context
	event domain.Event
}

// subscription owns a queue and one delivery goroutine, so a handler sees
// events in publish order and a slow handler never blocks Publish.
type subscription struct {
	id      uint64
	handler domain.EventHandler

	mu    sync.Mutex
	queue []queued
	wake  chan struct{}
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSubscription(id uint64, h domain.EventHandler) *subscription {
	return &subscription{
		id:      id,
		handler: h,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *subscription) enqueue(q queued) {
	s.mu.Lock()
	s.queue = append(s.queue, q)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) take() []queued {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.queue
	s.queue = nil
	return batch
}

// shutdown stops the worker after it has drained what is already queued.
func (s *subscription) shutdown() {
	s.once.Do(func() { close(s.stop) })
}

func (s *subscription) run(logger *slog.Logger) {
	defer close(s.done)
	for {
		if batch := s.take(); len(batch) > 0 {
			s.deliver(batch, logger)
			continue
		}
		select {
		case <-s.wake:
		case <-s.stop:
			s.deliver(s.take(), logger)
			return
		}
	}
}

func (s *subscription) deliver(batch []queued, logger *slog.Logger) {
	for _, q := range batch {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event handler panicked",
						"event", string(q.event.Type),
						"session", q.event.SessionID,
						"panic", r,
					)
				}
			}()
			s.handler(q.ctx, q.event)
		}()
	}
}

// Bus is an in-process, goroutine-safe event bus.
type Bus struct {
	mu      sync.RWMutex
	typed   map[domain.EventType][]*subscription
	allSubs []*subscription
	nextID  atomic.Uint64
	logger  *slog.Logger
	closed  bool
}

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		typed:  make(map[domain.EventType][]*subscription),
		logger: logger,
	}
}

// Publish queues event for every matching subscriber and returns immediately.
// Handlers receive a context that is not cancelled with ctx, so a cancelled
// stream can still be recorded.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	q := queued{ctx: context.WithoutCancel(ctx), event: event}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.typed[event.Type] {
		sub.enqueue(q)
	}
	for _, sub := range b.allSubs {
		sub.enqueue(q)
	}
}

// Subscribe registers a handler for a specific event type.
// Returns an unsubscribe function; events already queued are still delivered.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	sub := newSubscription(b.nextID.Add(1), handler)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.typed[eventType] = append(b.typed[eventType], sub)
	b.mu.Unlock()
	go sub.run(b.logger)

	return func() {
		b.mu.Lock()
		b.typed[eventType] = remove(b.typed[eventType], sub.id)
		b.mu.Unlock()
		sub.shutdown()
	}
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	sub := newSubscription(b.nextID.Add(1), handler)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.allSubs = append(b.allSubs, sub)
	b.mu.Unlock()
	go sub.run(b.logger)

	return func() {
		b.mu.Lock()
		b.allSubs = remove(b.allSubs, sub.id)
		b.mu.Unlock()
		sub.shutdown()
	}
}

func remove(subs []*subscription, id uint64) []*subscription {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// Close stops accepting events and waits until every queued event has been
// handled. Close is idempotent. It must not be called from inside a handler.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var subs []*subscription
	for _, list := range b.typed {
		subs = append(subs, list...)
	}
	subs = append(subs, b.allSubs...)
	b.mu.Unlock()

	for _, s := range subs {
		s.shutdown()
	}
	for _, s := range subs {
		<-s.done
	}
}

var _ domain.EventBus = (*Bus)(nil)

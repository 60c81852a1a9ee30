package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"careerprep/internal/domain"
	"careerprep/internal/infra/config"
	"careerprep/internal/infra/tracer"
)

// OpenFunc opens the body of one streaming request, usually an api.Client call.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// ConsumeFunc runs an opened body through the accumulator. The returned
// handle owns body.
type ConsumeFunc func(ctx context.Context, body io.ReadCloser, spec domain.StreamSpec, cb domain.StreamCallbacks) domain.StreamHandle

// StreamHandlers receive the progress of a managed session. Every call carries
// the session ID so a view can ignore a session it has moved past.
type StreamHandlers struct {
	OnUpdate   func(sessionID, text string)
	OnError    func(sessionID string, err error)
	OnComplete func(sessionID, text string)
}

// StreamManager keeps at most one active stream session per target. Starting
// a session for a busy target cancels the previous one first.
type StreamManager struct {
	consume ConsumeFunc
	specs   map[domain.StreamKind]domain.StreamSpec
	bus     domain.EventBus
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]*managedStream
}

type managedStream struct {
	session *domain.StreamSession
	cancel  context.CancelFunc
	span    trace.Span
	done    chan struct{}

	// guarded by StreamManager.mu
	handle  domain.StreamHandle
	stopped bool
}

// NewStreamManager creates a StreamManager. bus may be nil.
func NewStreamManager(consume ConsumeFunc, specs map[domain.StreamKind]domain.StreamSpec, bus domain.EventBus, logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		consume: consume,
		specs:   specs,
		bus:     bus,
		logger:  logger,
		active:  make(map[string]*managedStream),
	}
}

// SpecsFromConfig builds the per-kind stream specs from the streams section.
func SpecsFromConfig(cfg config.StreamsConfig) (map[domain.StreamKind]domain.StreamSpec, error) {
	kinds := []domain.StreamKind{domain.StreamAssistant, domain.StreamStepGuide, domain.StreamInterview}
	specs := make(map[domain.StreamKind]domain.StreamSpec, len(kinds))
	for _, kind := range kinds {
		sc, _ := cfg.ForKind(string(kind))
		mode, err := domain.ParseTokenMode(sc.Mode)
		if err != nil {
			return nil, fmt.Errorf("streams.%s: %w", kind, err)
		}
		specs[kind] = domain.StreamSpec{TokenField: sc.TokenField, Mode: mode}
	}
	return specs, nil
}

// Start opens a stream for target and consumes it in the background. Any
// session already running for target is cancelled first.
//
// A failure to open is returned here and never reaches h.OnError. If the
// session is cancelled while opening, Start returns domain.ErrStreamCancelled.
func (m *StreamManager) Start(ctx context.Context, target string, kind domain.StreamKind, open OpenFunc, h StreamHandlers) (*domain.StreamSession, error) {
	spec, ok := m.specs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown stream kind %q", domain.ErrInvalidInput, kind)
	}

	session := domain.NewStreamSession(ulid.Make().String(), target, kind)
	sctx, cancel := context.WithCancel(ctx)
	sctx, span := tracer.StartSpan(sctx, "stream.session",
		trace.WithAttributes(tracer.SessionAttrs(session.ID(), target, string(kind))...))
	ms := &managedStream{session: session, cancel: cancel, span: span, done: make(chan struct{})}

	m.mu.Lock()
	prev := m.active[target]
	m.active[target] = ms
	m.mu.Unlock()
	if prev != nil {
		m.logger.Debug("superseding stream session", "target", target, "previous", prev.session.ID())
		m.stop(ctx, prev)
	}

	m.publish(ctx, domain.EventStreamStarted, session.ID(), domain.StreamStartedPayload{Target: target, Kind: kind})

	body, err := open(sctx)
	if err != nil {
		if sctx.Err() != nil {
			m.abandon(ctx, ms)
			return nil, fmt.Errorf("%w: %s", domain.ErrStreamCancelled, target)
		}
		if session.Fail(err) {
			m.publishError(ctx, session, err)
		}
		tracer.RecordError(span, err)
		m.abandon(ctx, ms)
		return nil, err
	}

	m.mu.Lock()
	if ms.stopped || sctx.Err() != nil {
		m.mu.Unlock()
		_ = body.Close()
		m.abandon(ctx, ms)
		return nil, fmt.Errorf("%w: %s", domain.ErrStreamCancelled, target)
	}
	ms.handle = m.consume(sctx, body, spec, m.callbacks(ctx, ms, h))
	m.mu.Unlock()

	go m.watch(ctx, ms)
	return session, nil
}

// callbacks mirrors accumulator progress into the session and forwards it.
// Once the session has ended nothing more is forwarded.
func (m *StreamManager) callbacks(ctx context.Context, ms *managedStream, h StreamHandlers) domain.StreamCallbacks {
	s := ms.session
	return domain.StreamCallbacks{
		OnUpdate: func(text string) {
			if !s.SetText(text) {
				return
			}
			m.publish(ctx, domain.EventStreamDelta, s.ID(), domain.StreamDeltaPayload{Target: s.Target(), Text: text})
			if h.OnUpdate != nil {
				h.OnUpdate(s.ID(), text)
			}
		},
		OnError: func(err error) {
			if !s.Fail(err) {
				return
			}
			tracer.RecordError(ms.span, err)
			m.publishError(ctx, s, err)
			if h.OnError != nil {
				h.OnError(s.ID(), err)
			}
		},
		OnComplete: func() {
			if !s.Complete() {
				return
			}
			tracer.SetOK(ms.span)
			snap := s.Snapshot()
			m.publish(ctx, domain.EventStreamCompleted, s.ID(), domain.StreamCompletedPayload{
				Target:    snap.Target,
				Kind:      snap.Kind,
				Text:      snap.Text,
				StartedAt: snap.StartedAt,
			})
			if h.OnComplete != nil {
				h.OnComplete(s.ID(), snap.Text)
			}
		},
	}
}

// watch waits for the consumer to release the body. Terminal callbacks have
// returned by then; a session still active was cancelled through its context.
func (m *StreamManager) watch(ctx context.Context, ms *managedStream) {
	<-ms.handle.Done()
	m.abandon(ctx, ms)
}

// abandon finalizes a session that will receive no more callbacks.
func (m *StreamManager) abandon(ctx context.Context, ms *managedStream) {
	m.markCancelled(ctx, ms)
	m.evict(ms)
	ms.cancel()
	ms.span.End()
	close(ms.done)
}

// stop cancels a session from outside its consumer.
func (m *StreamManager) stop(ctx context.Context, ms *managedStream) {
	m.mu.Lock()
	ms.stopped = true
	handle := ms.handle
	m.mu.Unlock()

	if handle != nil {
		handle.Cancel()
	}
	ms.cancel()
	m.markCancelled(ctx, ms)
}

func (m *StreamManager) markCancelled(ctx context.Context, ms *managedStream) {
	if !ms.session.Deactivate() {
		return
	}
	snap := ms.session.Snapshot()
	m.logger.Debug("stream session cancelled", "session", snap.ID, "target", snap.Target)
	m.publish(ctx, domain.EventStreamCancelled, snap.ID, domain.StreamCancelledPayload{
		Target: snap.Target,
		Kind:   snap.Kind,
		Text:   snap.Text,
	})
}

// evict removes ms from the active map unless a newer session replaced it.
func (m *StreamManager) evict(ms *managedStream) {
	target := ms.session.Target()
	m.mu.Lock()
	if m.active[target] == ms {
		delete(m.active, target)
	}
	m.mu.Unlock()
}

// Cancel stops the active session for target, if any. No callback of that
// session starts after Cancel returns. The session stays registered until
// its consumer has released the body; Wait observes that.
func (m *StreamManager) Cancel(target string) {
	m.mu.Lock()
	ms := m.active[target]
	m.mu.Unlock()
	if ms != nil {
		m.stop(context.Background(), ms)
	}
}

// CancelAll stops every active session.
func (m *StreamManager) CancelAll() {
	m.mu.Lock()
	all := make([]*managedStream, 0, len(m.active))
	for _, ms := range m.active {
		all = append(all, ms)
	}
	m.mu.Unlock()
	for _, ms := range all {
		m.stop(context.Background(), ms)
	}
}

// Active returns the session registered for target. A session stays
// registered until its body is released.
func (m *StreamManager) Active(target string) (*domain.StreamSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.active[target]
	if !ok {
		return nil, false
	}
	return ms.session, true
}

// Wait blocks until the current session for target has released its body,
// or ctx is done. It returns immediately when target has no session.
func (m *StreamManager) Wait(ctx context.Context, target string) error {
	m.mu.Lock()
	ms := m.active[target]
	m.mu.Unlock()
	if ms == nil {
		return nil
	}
	select {
	case <-ms.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *StreamManager) publishError(ctx context.Context, s *domain.StreamSession, err error) {
	snap := s.Snapshot()
	m.publish(ctx, domain.EventStreamError, snap.ID, domain.StreamErrorPayload{
		Target:    snap.Target,
		Kind:      snap.Kind,
		Text:      snap.Text,
		Error:     err.Error(),
		StartedAt: snap.StartedAt,
	})
}

func (m *StreamManager) publish(ctx context.Context, t domain.EventType, sessionID string, payload any) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, domain.NewEvent(t, sessionID, payload))
}

// Package sse turns a Server-Sent-Events response body into a growing text
// value delivered to a rendering layer.
package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"careerprep/internal/domain"
)

const defaultReadSize = 4096

// Handlers are the rendering layer's callbacks.
type Handlers = domain.StreamCallbacks

// Accumulator consumes SSE bodies. It holds no per-stream state and may be
// shared by any number of concurrent consumptions.
type Accumulator struct {
	logger   *slog.Logger
	readSize int
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithReadSize sets the size of each underlying Read. Mostly useful in tests.
func WithReadSize(n int) Option {
	return func(a *Accumulator) {
		if n > 0 {
			a.readSize = n
		}
	}
}

// NewAccumulator creates an Accumulator.
func NewAccumulator(logger *slog.Logger, opts ...Option) *Accumulator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Accumulator{logger: logger, readSize: defaultReadSize}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Consume starts reading body on a new goroutine and returns immediately.
// The returned Handle owns body: it is closed when consumption ends or is
// cancelled. Cancelling ctx is equivalent to calling Handle.Cancel.
func (a *Accumulator) Consume(ctx context.Context, body io.ReadCloser, spec domain.StreamSpec, h Handlers) *Handle {
	handle := &Handle{body: body, done: make(chan struct{})}
	go a.run(ctx, handle, spec, h)
	return handle
}

func (a *Accumulator) run(ctx context.Context, h *Handle, spec domain.StreamSpec, hs Handlers) {
	defer close(h.done)
	defer h.closeBody()

	stop := context.AfterFunc(ctx, h.Cancel)
	defer stop()

	st := &streamState{spec: spec, handle: h, handlers: hs}
	buf := make([]byte, a.readSize)
	var residual []byte

	for {
		if h.Cancelled() {
			return
		}

		n, err := h.body.Read(buf)
		if n > 0 {
			residual = append(residual, buf[:n]...)
			var lines [][]byte
			lines, residual = splitLines(residual)
			for _, line := range lines {
				if !a.handleLine(st, line) {
					return
				}
			}
		}

		if errors.Is(err, io.EOF) {
			if len(residual) > 0 && !a.handleLine(st, residual) {
				return
			}
			if h.finish(hs.OnComplete) {
				a.logger.Debug("stream completed",
					"frames", st.frames,
					"updates", st.updates,
					"dropped", st.dropped,
					"length", len(st.text),
				)
			}
			return
		}
		if err != nil {
			// A read aborted by our own Cancel is not a transport failure.
			if h.Cancelled() {
				return
			}
			readErr := fmt.Errorf("%w: %w", domain.ErrStreamRead, err)
			a.logger.Warn("stream read failed",
				"error", err,
				"updates", st.updates,
			)
			h.finish(func() {
				if hs.OnError != nil {
					hs.OnError(readErr)
				}
			})
			return
		}
	}
}

// streamState is the per-consumption accumulation state. Only the consuming
// goroutine touches it.
type streamState struct {
	spec     domain.StreamSpec
	handle   *Handle
	handlers Handlers
	text     string
	frames   int
	updates  int
	dropped  int
}

// handleLine processes one complete line. It returns false when the handle
// was cancelled and consumption must stop.
func (a *Accumulator) handleLine(st *streamState, line []byte) bool {
	frame, isData, err := parseLine(line, st.spec.TokenField)
	if !isData {
		return true
	}
	st.frames++
	if err != nil {
		st.dropped++
		a.logger.Warn("dropping malformed stream frame", "error", err)
		return true
	}

	next, ok := frame.Apply(st.text, st.spec.Mode)
	if !ok {
		return true
	}
	st.text = next
	st.updates++
	return st.handle.dispatch(func() {
		if st.handlers.OnUpdate != nil {
			st.handlers.OnUpdate(next)
		}
	})
}

// Handle controls one consumption.
type Handle struct {
	mu        sync.Mutex
	cancelled bool
	finished  bool
	closeOnce sync.Once
	body      io.ReadCloser
	done      chan struct{}
}

// Cancel stops further reads and suppresses every later callback. It is
// idempotent, safe to call from inside a callback, and a no-op once the
// stream has completed or failed. A callback already running when Cancel is
// called is allowed to return; no new one starts.
func (h *Handle) Cancel() {
	h.mu.Lock()
	if h.cancelled || h.finished {
		h.mu.Unlock()
		return
	}
	h.cancelled = true
	h.mu.Unlock()
	// Unblocks a Read that is waiting on the network.
	h.closeBody()
}

// Cancelled reports whether Cancel took effect.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Done is closed when the consuming goroutine has exited and the body is closed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// dispatch runs fn unless the handle is cancelled or finished.
func (h *Handle) dispatch(fn func()) bool {
	h.mu.Lock()
	live := !h.cancelled && !h.finished
	h.mu.Unlock()
	if !live {
		return false
	}
	fn()
	return true
}

// finish marks the terminal transition and runs fn (OnComplete or OnError).
// It returns false if the handle was already cancelled or finished.
func (h *Handle) finish(fn func()) bool {
	h.mu.Lock()
	if h.cancelled || h.finished {
		h.mu.Unlock()
		return false
	}
	h.finished = true
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

var _ domain.StreamHandle = (*Handle)(nil)

func (h *Handle) closeBody() {
	h.closeOnce.Do(func() {
		_ = h.body.Close()
	})
}

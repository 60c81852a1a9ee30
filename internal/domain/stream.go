package domain

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// StreamKind identifies which backend endpoint family produced a stream.
type StreamKind string

const (
	StreamAssistant StreamKind = "assistant"  // roadmap AI assistant chat
	StreamStepGuide StreamKind = "step_guide" // roadmap step detail guide
	StreamInterview StreamKind = "interview"  // mock interview questions/feedback
)

// TokenMode says how a frame's token combines with the text accumulated so far.
type TokenMode string

const (
	// TokenAppend treats each token as a delta appended to the text.
	TokenAppend TokenMode = "append"
	// TokenReplace treats each token as the whole text so far.
	TokenReplace TokenMode = "replace"
)

// ParseTokenMode converts a config string to a TokenMode.
func ParseTokenMode(s string) (TokenMode, error) {
	switch TokenMode(s) {
	case TokenAppend, "":
		return TokenAppend, nil
	case TokenReplace:
		return TokenReplace, nil
	default:
		return "", fmt.Errorf("%w: unknown token mode %q", ErrInvalidInput, s)
	}
}

// StreamSpec configures how frames of one stream kind are interpreted.
type StreamSpec struct {
	// TokenField is the JSON path of the text fragment in each frame ("token", "content").
	TokenField string
	Mode       TokenMode
}

// EventFrame is one decoded `data:` line from the wire.
type EventFrame struct {
	Raw    string          // the line after the data marker
	Parsed json.RawMessage // nil when Raw is not valid JSON
	Token  *string         // nil when the frame carries no usable token
}

// Apply combines the frame's token with text according to mode.
// ok is false when the frame has no token.
func (f EventFrame) Apply(text string, mode TokenMode) (next string, ok bool) {
	if f.Token == nil {
		return text, false
	}
	if mode == TokenReplace {
		return *f.Token, true
	}
	return text + *f.Token, true
}

// StreamSession is one in-flight streamed exchange for a logical target
// (a chat turn, a selected roadmap step). Safe for concurrent use.
type StreamSession struct {
	mu        sync.RWMutex
	id        string
	target    string
	kind      StreamKind
	text      string
	active    bool
	complete  bool
	err       error
	startedAt time.Time
	endedAt   time.Time
}

// NewStreamSession creates an active session.
func NewStreamSession(id, target string, kind StreamKind) *StreamSession {
	return &StreamSession{
		id:        id,
		target:    target,
		kind:      kind,
		active:    true,
		startedAt: time.Now(),
	}
}

func (s *StreamSession) ID() string       { return s.id }
func (s *StreamSession) Target() string   { return s.target }
func (s *StreamSession) Kind() StreamKind { return s.kind }

// SetText records the latest accumulated text. Ignored once the session ended.
func (s *StreamSession) SetText(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	s.text = text
	return true
}

// Complete marks a normal end of stream. The text is frozen afterwards.
func (s *StreamSession) Complete() bool {
	return s.end(true, nil)
}

// Fail marks a terminal stream error.
func (s *StreamSession) Fail(err error) bool {
	return s.end(false, err)
}

// Deactivate marks the session as superseded or cancelled.
func (s *StreamSession) Deactivate() bool {
	return s.end(false, nil)
}

func (s *StreamSession) end(complete bool, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	s.active = false
	s.complete = complete
	s.err = err
	s.endedAt = time.Now()
	return true
}

// StreamSnapshot is an immutable copy of a session's state.
type StreamSnapshot struct {
	ID        string
	Target    string
	Kind      StreamKind
	Text      string
	Active    bool
	Complete  bool
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// Status is a short label for the snapshot's lifecycle state.
func (s StreamSnapshot) Status() string {
	switch {
	case s.Active:
		return "active"
	case s.Complete:
		return "completed"
	case s.Err != nil:
		return "failed"
	default:
		return "cancelled"
	}
}

// Snapshot returns a copy of the session state.
func (s *StreamSession) Snapshot() StreamSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StreamSnapshot{
		ID:        s.id,
		Target:    s.target,
		Kind:      s.kind,
		Text:      s.text,
		Active:    s.active,
		Complete:  s.complete,
		Err:       s.err,
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
	}
}

// StreamDeltaPayload is the payload for EventStreamDelta events.
type StreamDeltaPayload struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

// StreamStartedPayload is the payload for EventStreamStarted events.
type StreamStartedPayload struct {
	Target string     `json:"target"`
	Kind   StreamKind `json:"kind"`
}

// StreamCompletedPayload is the payload for EventStreamCompleted events.
type StreamCompletedPayload struct {
	Target    string     `json:"target"`
	Kind      StreamKind `json:"kind"`
	Text      string     `json:"text"`
	StartedAt time.Time  `json:"started_at"`
}

// StreamErrorPayload is the payload for EventStreamError events.
type StreamErrorPayload struct {
	Target    string     `json:"target"`
	Kind      StreamKind `json:"kind"`
	Text      string     `json:"text"`
	Error     string     `json:"error"`
	StartedAt time.Time  `json:"started_at"`
}

// StreamCancelledPayload is the payload for EventStreamCancelled events.
type StreamCancelledPayload struct {
	Target string     `json:"target"`
	Kind   StreamKind `json:"kind"`
	Text   string     `json:"text"`
}

// StreamCallbacks receive the progress of one stream consumption. Nil fields
// are skipped. All callbacks of one consumption run on one goroutine, in wire
// order.
type StreamCallbacks struct {
	// OnUpdate receives the full accumulated text after each decoded token.
	OnUpdate func(text string)
	// OnError receives a transport failure wrapping ErrStreamRead.
	// Called at most once; nothing is delivered afterwards.
	OnError func(err error)
	// OnComplete is called once when the body ends normally.
	OnComplete func()
}

// StreamHandle controls one consumption.
type StreamHandle interface {
	// Cancel stops delivery; no callback starts after it returns.
	Cancel()
	// Done is closed once the consumer has released the body.
	Done() <-chan struct{}
}

package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"careerprep/internal/domain"
)

// HistoryRecorder persists finished stream sessions as transcripts.
type HistoryRecorder struct {
	store  domain.TranscriptStore
	logger *slog.Logger
}

// NewHistoryRecorder creates a HistoryRecorder.
func NewHistoryRecorder(store domain.TranscriptStore, logger *slog.Logger) *HistoryRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryRecorder{store: store, logger: logger}
}

// Attach subscribes the recorder to completed and failed sessions on bus.
// The returned func unsubscribes.
func (h *HistoryRecorder) Attach(bus domain.EventBus) func() {
	unsubCompleted := bus.Subscribe(domain.EventStreamCompleted, h.handle)
	unsubError := bus.Subscribe(domain.EventStreamError, h.handle)
	return func() {
		unsubCompleted()
		unsubError()
	}
}

func (h *HistoryRecorder) handle(ctx context.Context, ev domain.Event) {
	t := domain.Transcript{SessionID: ev.SessionID, EndedAt: ev.Timestamp}

	switch ev.Type {
	case domain.EventStreamCompleted:
		var p domain.StreamCompletedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			h.logger.Warn("history: bad completed payload", "session", ev.SessionID, "error", err)
			return
		}
		t.Target, t.Kind, t.Text, t.StartedAt = p.Target, p.Kind, p.Text, p.StartedAt
		t.Status = "completed"
	case domain.EventStreamError:
		var p domain.StreamErrorPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			h.logger.Warn("history: bad error payload", "session", ev.SessionID, "error", err)
			return
		}
		t.Target, t.Kind, t.Text, t.StartedAt = p.Target, p.Kind, p.Text, p.StartedAt
		t.Status = "failed"
		t.Error = p.Error
	default:
		return
	}
	if t.StartedAt.IsZero() {
		t.StartedAt = t.EndedAt
	}

	if err := h.store.SaveTranscript(ctx, t); err != nil {
		h.logger.Warn("history: save transcript failed", "session", t.SessionID, "error", err)
		return
	}
	h.logger.Debug("history: transcript saved", "session", t.SessionID, "status", t.Status,
		"duration", t.EndedAt.Sub(t.StartedAt).Round(time.Millisecond))
}

// Recent returns up to limit transcripts, newest first.
func (h *HistoryRecorder) Recent(ctx context.Context, limit int) ([]domain.Transcript, error) {
	ts, err := h.store.ListTranscripts(ctx, limit)
	if err != nil {
		return nil, domain.WrapOp("history.Recent", err)
	}
	return ts, nil
}

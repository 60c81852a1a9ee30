package domain

import (
	"context"
	"time"
)

// Transcript is a finished stream session persisted for the history view.
type Transcript struct {
	SessionID string
	Target    string
	Kind      StreamKind
	Text      string
	Status    string // "completed" or "failed"
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// TranscriptStore persists finished sessions.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, t Transcript) error
	ListTranscripts(ctx context.Context, limit int) ([]Transcript, error)
}

package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEventFrameApply(t *testing.T) {
	f := EventFrame{Raw: `{"token":"lo"}`, Token: strPtr("lo")}

	got, ok := f.Apply("Hel", TokenAppend)
	assert.True(t, ok)
	assert.Equal(t, "Hello", got)

	got, ok = f.Apply("Hel", TokenReplace)
	assert.True(t, ok)
	assert.Equal(t, "lo", got)

	empty := EventFrame{Raw: `{}`}
	got, ok = empty.Apply("Hel", TokenAppend)
	assert.False(t, ok)
	assert.Equal(t, "Hel", got)
}

func TestParseTokenMode(t *testing.T) {
	m, err := ParseTokenMode("")
	require.NoError(t, err)
	assert.Equal(t, TokenAppend, m)

	m, err = ParseTokenMode("replace")
	require.NoError(t, err)
	assert.Equal(t, TokenReplace, m)

	_, err = ParseTokenMode("merge")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStreamSessionFreezesAfterComplete(t *testing.T) {
	s := NewStreamSession("01J0", "step:1", StreamStepGuide)
	assert.True(t, s.SetText("a"))
	assert.True(t, s.Complete())

	assert.False(t, s.SetText("ab"), "no mutation after completion")
	assert.False(t, s.Complete(), "second terminal transition is rejected")
	assert.False(t, s.Fail(errors.New("late")))

	snap := s.Snapshot()
	assert.Equal(t, "a", snap.Text)
	assert.False(t, snap.Active)
	assert.True(t, snap.Complete)
	assert.NoError(t, snap.Err)
	assert.Equal(t, "completed", snap.Status())
	assert.False(t, snap.EndedAt.IsZero())
}

func TestStreamSessionStatuses(t *testing.T) {
	active := NewStreamSession("1", "t", StreamAssistant)
	assert.Equal(t, "active", active.Snapshot().Status())

	failed := NewStreamSession("2", "t", StreamAssistant)
	failed.Fail(ErrStreamRead)
	assert.Equal(t, "failed", failed.Snapshot().Status())
	assert.ErrorIs(t, failed.Snapshot().Err, ErrStreamRead)

	cancelled := NewStreamSession("3", "t", StreamAssistant)
	cancelled.Deactivate()
	assert.Equal(t, "cancelled", cancelled.Snapshot().Status())
}

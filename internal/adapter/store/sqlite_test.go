package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerprep/internal/domain"
)

func newTestStore(t *testing.T, opts ...Option) (*SQLiteStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "careerprep.db")
	s, err := Open(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dbPath
}

func TestKeyValue(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "theme", "dark"))
	require.NoError(t, s.Set(ctx, "theme", "light"))
	v, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)

	require.NoError(t, s.Delete(ctx, "theme"))
	require.NoError(t, s.Delete(ctx, "theme"), "deleting twice is fine")
	_, ok, err = s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTranscripts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveTranscript(ctx, domain.Transcript{
			SessionID: id,
			Target:    "assistant:rm-1",
			Kind:      domain.StreamAssistant,
			Text:      "reply " + id,
			Status:    "completed",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			EndedAt:   base.Add(time.Duration(i)*time.Minute + 10*time.Second),
		}))
	}

	list, err := s.ListTranscripts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].SessionID, "newest first")
	assert.Equal(t, "b", list[1].SessionID)
	assert.Equal(t, domain.StreamAssistant, list[0].Kind)
	assert.True(t, list[0].StartedAt.Equal(base.Add(2*time.Minute)))
}

func TestSaveTranscriptUpserts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	tr := domain.Transcript{SessionID: "x", Target: "t", Kind: domain.StreamInterview, Text: "partial", Status: "failed", Error: "boom", StartedAt: now, EndedAt: now}
	require.NoError(t, s.SaveTranscript(ctx, tr))
	tr.Text, tr.Status, tr.Error = "full", "completed", ""
	require.NoError(t, s.SaveTranscript(ctx, tr))

	list, err := s.ListTranscripts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "full", list[0].Text)
	assert.Empty(t, list[0].Error)
}

func TestReopenKeepsData(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.Set(context.Background(), "k", "v"))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestUserPlain(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.LoadUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	want := domain.User{ID: "42", Nickname: "민수", ProfileImage: "https://img", Token: "jwt"}
	require.NoError(t, s.SaveUser(ctx, want))

	raw, _, err := s.Get(ctx, domain.UserKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, plainPrefix))

	got, err := s.LoadUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	require.NoError(t, s.DeleteUser(ctx))
	got, err = s.LoadUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserEncrypted(t *testing.T) {
	s, path := newTestStore(t, WithPassphrase("hunter2"))
	ctx := context.Background()

	want := domain.User{ID: "42", Nickname: "kim", Token: "secret-jwt"}
	require.NoError(t, s.SaveUser(ctx, want))

	raw, _, err := s.Get(ctx, domain.UserKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, encryptedPrefix))
	assert.NotContains(t, raw, "secret-jwt")

	got, err := s.LoadUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
	require.NoError(t, s.Close())

	wrong, err := Open(path, WithPassphrase("wrong"))
	require.NoError(t, err)
	defer wrong.Close()
	_, err = wrong.LoadUser(ctx)
	assert.ErrorIs(t, err, domain.ErrDecryption)

	none, err := Open(path)
	require.NoError(t, err)
	defer none.Close()
	_, err = none.LoadUser(ctx)
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestUserCorruptRecord(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, domain.UserKey, `{"id":"legacy-json"}`))
	_, err := s.LoadUser(ctx)
	assert.ErrorIs(t, err, domain.ErrStore)

	require.NoError(t, s.Set(ctx, domain.UserKey, plainPrefix+"!!!"))
	_, err = s.LoadUser(ctx)
	assert.ErrorIs(t, err, domain.ErrStore)
}

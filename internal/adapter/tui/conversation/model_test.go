package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerprep/internal/adapter/tui/components"
	"careerprep/internal/domain"
	"careerprep/internal/usecase"
)

// fakeStreamer records calls. onStart, when set, runs inside Start with the
// handlers so a test can emit callbacks synchronously.
type fakeStreamer struct {
	mu        sync.Mutex
	starts    []string
	cancelled []string
	nextID    int
	err       error
	onStart   func(id string, h usecase.StreamHandlers)
}

func (f *fakeStreamer) Start(_ context.Context, target string, kind domain.StreamKind, open usecase.OpenFunc, h usecase.StreamHandlers) (*domain.StreamSession, error) {
	f.mu.Lock()
	f.starts = append(f.starts, target)
	f.nextID++
	id := fmt.Sprintf("s%d", f.nextID)
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if f.onStart != nil {
		f.onStart(id, h)
	}
	return domain.NewStreamSession(id, target, kind), nil
}

func (f *fakeStreamer) Cancel(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, target)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDeps(s Streamer, interactive bool) Deps {
	return Deps{
		Streams:     s,
		Target:      "roadmap:42",
		Kind:        domain.StreamAssistant,
		Open:        func(string) usecase.OpenFunc { return nil },
		Title:       "Roadmap assistant",
		Fallback:    "fallback!",
		Interactive: interactive,
		Logger:      quietLogger(),
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// submit sends user input and runs the resulting start command.
func submit(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, cmd := update(t, m, components.InputSubmitMsg{Value: text})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func lastMessage(t *testing.T, m Model) components.ChatMessage {
	t.Helper()
	msgs := m.Messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func TestModel_StreamsReplyIntoBubble(t *testing.T) {
	fs := &fakeStreamer{}
	m := New(context.Background(), testDeps(fs, true), func(tea.Msg) {})

	m = submit(t, m, "백엔드 로드맵 추천해줘")
	require.True(t, m.Waiting())
	assert.Equal(t, []string{"roadmap:42"}, fs.starts)

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, components.RoleUser, msgs[0].Role)
	assert.Equal(t, components.RoleCoach, msgs[1].Role)
	assert.True(t, msgs[1].Pending)

	m, _ = update(t, m, StreamUpdateMsg{Gen: 1, SessionID: "s1", Text: "Go"})
	m, _ = update(t, m, StreamUpdateMsg{Gen: 1, SessionID: "s1", Text: "Go 언어"})
	assert.Equal(t, "Go 언어", lastMessage(t, m).Content)
	assert.True(t, lastMessage(t, m).Pending)

	m, _ = update(t, m, StreamDoneMsg{Gen: 1, SessionID: "s1", Text: "Go 언어부터"})
	last := lastMessage(t, m)
	assert.Equal(t, "Go 언어부터", last.Content)
	assert.False(t, last.Pending)
	assert.False(t, m.Waiting())
	assert.Len(t, m.Messages(), 2, "the reply bubble is updated in place")
}

func TestModel_DropsStaleUpdates(t *testing.T) {
	fs := &fakeStreamer{}
	m := New(context.Background(), testDeps(fs, true), func(tea.Msg) {})
	m = submit(t, m, "first")

	m, _ = update(t, m, StreamUpdateMsg{Gen: 1, SessionID: "s1", Text: "current"})
	// Same turn, different session.
	m, _ = update(t, m, StreamUpdateMsg{Gen: 1, SessionID: "s-other", Text: "stray"})
	// Older turn.
	m, _ = update(t, m, StreamUpdateMsg{Gen: 0, SessionID: "s0", Text: "old"})
	m, _ = update(t, m, StreamDoneMsg{Gen: 0, SessionID: "s0", Text: "old done"})

	assert.Equal(t, "current", lastMessage(t, m).Content)
	assert.True(t, m.Waiting())
}

func TestModel_StreamFailureShowsFallback(t *testing.T) {
	fs := &fakeStreamer{}
	m := New(context.Background(), testDeps(fs, true), func(tea.Msg) {})
	m = submit(t, m, "question")

	m, _ = update(t, m, StreamUpdateMsg{Gen: 1, SessionID: "s1", Text: "partial"})
	m, _ = update(t, m, StreamFailedMsg{Gen: 1, SessionID: "s1", Err: fmt.Errorf("%w: reset", domain.ErrStreamRead)})

	last := lastMessage(t, m)
	assert.Equal(t, "fallback!", last.Content)
	assert.False(t, last.Pending)
	assert.False(t, m.Waiting())
}

func TestModel_OpenFailureShowsFallbackAndError(t *testing.T) {
	fs := &fakeStreamer{err: domain.ErrNotAuthenticated}
	m := New(context.Background(), testDeps(fs, true), func(tea.Msg) {})
	m = submit(t, m, "question")

	msgs := m.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "fallback!", msgs[1].Content)
	assert.Equal(t, components.RoleError, msgs[2].Role)
	assert.Contains(t, msgs[2].Content, "Login Required")
	assert.False(t, m.Waiting())
}

func TestModel_CtrlCCancelsReply(t *testing.T) {
	fs := &fakeStreamer{}
	m := New(context.Background(), testDeps(fs, true), func(tea.Msg) {})
	m = submit(t, m, "question")
	m, _ = update(t, m, StreamUpdateMsg{Gen: 1, SessionID: "s1", Text: "half"})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd, "first Ctrl+C stops the reply, it does not quit")
	assert.Equal(t, []string{"roadmap:42"}, fs.cancelled)
	assert.False(t, m.Waiting())

	// A late update from the cancelled turn is ignored.
	m, _ = update(t, m, StreamUpdateMsg{Gen: 1, SessionID: "s1", Text: "half and more"})
	msgs := m.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "half", msgs[1].Content)
	assert.False(t, msgs[1].Pending)
	assert.Equal(t, "Reply cancelled.", msgs[2].Content)

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

func TestModel_CallbacksCarryTurnAndSession(t *testing.T) {
	var mu sync.Mutex
	var sent []tea.Msg
	send := func(msg tea.Msg) {
		mu.Lock()
		sent = append(sent, msg)
		mu.Unlock()
	}
	fs := &fakeStreamer{onStart: func(id string, h usecase.StreamHandlers) {
		h.OnUpdate(id, "A")
		h.OnComplete(id, "AB")
	}}

	m := New(context.Background(), testDeps(fs, true), send)
	m = submit(t, m, "hi")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 2)
	assert.Equal(t, StreamUpdateMsg{Gen: 1, SessionID: "s1", Text: "A"}, sent[0])
	assert.Equal(t, StreamDoneMsg{Gen: 1, SessionID: "s1", Text: "AB"}, sent[1])
}

func TestModel_OpeningTurn(t *testing.T) {
	fs := &fakeStreamer{}
	deps := testDeps(fs, false)
	deps.Kind = domain.StreamStepGuide
	deps.Opening = true
	m := New(context.Background(), deps, func(tea.Msg) {})

	require.True(t, m.Waiting())
	msgs := m.Messages()
	require.Len(t, msgs, 1, "no user bubble for an opening turn")
	assert.Equal(t, components.RoleCoach, msgs[0].Role)

	// q does not close while the guide is streaming.
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)

	m, _ = update(t, m, StreamDoneMsg{Gen: 1, SessionID: "s1", Text: "# Guide"})
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

func TestModel_History(t *testing.T) {
	deps := testDeps(&fakeStreamer{}, true)
	deps.History = []components.ChatMessage{
		{Role: components.RoleCoach, Content: "자기소개 부탁드립니다."},
		{Role: components.RoleUser, Content: "안녕하세요."},
	}
	m := New(context.Background(), deps, func(tea.Msg) {})
	assert.Len(t, m.Messages(), 2)
	assert.False(t, m.Waiting())
}

func TestModel_SlashCommands(t *testing.T) {
	fs := &fakeStreamer{}
	m := New(context.Background(), testDeps(fs, true), func(tea.Msg) {})

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/cancel"})
	assert.Equal(t, "No reply in progress.", lastMessage(t, m).Content)

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/help"})
	assert.True(t, strings.Contains(lastMessage(t, m).Content, "/cancel"))

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/clear"})
	assert.Empty(t, m.Messages())
	assert.Empty(t, fs.starts, "slash commands never start a stream")

	_, cmd := update(t, m, components.InputSubmitMsg{Value: "/quit"})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

func TestModel_CancelledStartIsSilent(t *testing.T) {
	fs := &fakeStreamer{err: fmt.Errorf("%w: roadmap:42", domain.ErrStreamCancelled)}
	m := New(context.Background(), testDeps(fs, true), func(tea.Msg) {})
	m = submit(t, m, "question")

	for _, msg := range m.Messages() {
		assert.NotEqual(t, components.RoleError, msg.Role)
	}
	last := lastMessage(t, m)
	assert.Equal(t, "(cancelled)", last.Content)
	assert.False(t, last.Pending)
	assert.False(t, m.Waiting())
	assert.True(t, errors.Is(fs.err, domain.ErrStreamCancelled))
}

func TestModel_ViewAfterResize(t *testing.T) {
	m := New(context.Background(), testDeps(&fakeStreamer{}, true), func(tea.Msg) {})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 24})
	view := m.View()
	assert.Contains(t, view, "Roadmap assistant")
}

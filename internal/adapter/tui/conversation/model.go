package conversation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"careerprep/internal/adapter/tui/components"
	"careerprep/internal/adapter/tui/theme"
	"careerprep/internal/adapter/tui/uxerror"
	"careerprep/internal/domain"
	"careerprep/internal/usecase"
)

// Streamer starts and cancels reply streams. *usecase.StreamManager
// implements it.
type Streamer interface {
	Start(ctx context.Context, target string, kind domain.StreamKind, open usecase.OpenFunc, h usecase.StreamHandlers) (*domain.StreamSession, error)
	Cancel(target string)
}

// Deps configure a conversation view.
type Deps struct {
	Streams Streamer
	Target  string
	Kind    domain.StreamKind
	// Open returns the request for one turn. input is empty for the opening turn.
	Open func(input string) usecase.OpenFunc

	Title       string
	Placeholder string
	// Fallback replaces a reply whose stream failed.
	Fallback string
	// Opening starts a reply as soon as the view opens.
	Opening bool
	// Interactive enables the prompt for follow-up turns.
	Interactive bool
	// History is shown above the first turn.
	History []components.ChatMessage
	Logger  *slog.Logger
}

// Model is the root Bubble Tea model of a conversation.
type Model struct {
	deps Deps
	ctx  context.Context
	send func(tea.Msg)

	chatView  components.ChatViewModel
	input     components.InputAreaModel
	statusBar components.StatusBarModel
	spinner   spinner.Model

	// gen is bumped on every turn and on cancel; sessionID is pinned by the
	// first message of the current turn.
	gen       uint64
	sessionID string
	waiting   bool
	initCmd   tea.Cmd

	width    int
	height   int
	quitting bool
}

// New creates the model. send delivers messages from stream callbacks into
// the update loop, normally tea.Program.Send.
func New(ctx context.Context, deps Deps, send func(tea.Msg)) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Fallback == "" {
		deps.Fallback = "죄송합니다. 오류가 발생했습니다."
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	sb := components.NewStatusBar()
	sb.Title = deps.Title

	chatView := components.NewChatView()
	chatView.SetMaxMessages(500)
	for _, msg := range deps.History {
		chatView.AddMessage(msg)
	}

	m := Model{
		deps:      deps,
		ctx:       ctx,
		send:      send,
		chatView:  chatView,
		input:     components.NewInputArea(deps.Placeholder),
		statusBar: sb,
		spinner:   s,
	}
	m.input.SetEnabled(deps.Interactive)
	m.statusBar.Hints = m.hints()
	if deps.Opening {
		m.initCmd = m.beginTurn("")
	}
	return m
}

// Init starts the spinner and, for an opening turn, the first stream.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initCmd)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case components.InputSubmitMsg:
		return m.handleSubmit(msg.Value)

	case turnStartedMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		if msg.Err != nil {
			if errors.Is(msg.Err, domain.ErrStreamCancelled) {
				m.chatView.UpdateLastMessage("(cancelled)", false)
			} else {
				m.showOpenFailure(msg.Err)
			}
			m.finishTurn()
			return m, nil
		}
		m.accept(msg.Gen, msg.SessionID)
		return m, nil

	case StreamUpdateMsg:
		if m.accept(msg.Gen, msg.SessionID) {
			m.chatView.UpdateLastMessage(msg.Text, true)
		}
		return m, nil

	case StreamDoneMsg:
		if m.accept(msg.Gen, msg.SessionID) {
			m.chatView.UpdateLastMessage(msg.Text, false)
			m.finishTurn()
		}
		return m, nil

	case StreamFailedMsg:
		if m.accept(msg.Gen, msg.SessionID) {
			m.deps.Logger.Warn("reply stream failed", "session", msg.SessionID, "error", msg.Err)
			m.chatView.UpdateLastMessage(m.deps.Fallback, false)
			m.finishTurn()
			m.statusBar.Extra = theme.TextWarning.Render(theme.SymbolWarning + " " + uxerror.Humanize(msg.Err).Title)
		}
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.waiting && m.deps.Interactive {
		if _, isMouse := msg.(tea.MouseMsg); !isMouse {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the conversation.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "  Initializing..."
	}

	var bottom string
	switch {
	case m.waiting:
		bottom = m.spinner.View() + " " + theme.TextMuted.Render("Coach is answering... (Ctrl+C to stop)")
	case m.deps.Interactive:
		bottom = m.input.View()
	default:
		bottom = theme.TextMuted.Render("Press q to close.")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.chatView.View(),
		components.Divider(m.width),
		bottom,
		m.statusBar.View(),
	)
}

// Messages returns the bubbles currently shown.
func (m Model) Messages() []components.ChatMessage {
	return m.chatView.Messages.Messages
}

// Waiting reports whether a reply is streaming.
func (m Model) Waiting() bool { return m.waiting }

func (m *Model) layout() {
	inputH := 1
	if m.deps.Interactive {
		inputH = 3
	}
	contentH := m.height - inputH - 2 // divider + status bar
	if contentH < 5 {
		contentH = 5
	}
	m.statusBar.SetWidth(m.width)
	m.chatView.SetSize(m.width, contentH)
	m.input.SetWidth(m.width)
}

// accept reports whether a stream message belongs to the current turn.
func (m *Model) accept(gen uint64, sessionID string) bool {
	if gen != m.gen {
		return false
	}
	if m.sessionID == "" {
		m.sessionID = sessionID
		return true
	}
	return sessionID == m.sessionID
}

// beginTurn adds the bubbles for a turn and starts its stream.
func (m *Model) beginTurn(input string) tea.Cmd {
	if input != "" {
		m.chatView.AddMessage(components.ChatMessage{Role: components.RoleUser, Content: input})
	}
	m.chatView.AddMessage(components.ChatMessage{Role: components.RoleCoach, Pending: true})

	m.gen++
	m.sessionID = ""
	m.waiting = true
	m.input.SetEnabled(false)
	m.statusBar.Extra = theme.SymbolSpinner + " Answering..."
	return startTurnCmd(m.ctx, m.deps, input, m.gen, m.send)
}

func (m *Model) finishTurn() {
	m.waiting = false
	m.input.SetEnabled(m.deps.Interactive)
	m.statusBar.Extra = ""
	m.statusBar.Hints = m.hints()
}

// cancelTurn stops the current stream and keeps whatever text had arrived.
func (m *Model) cancelTurn() {
	m.deps.Streams.Cancel(m.deps.Target)
	m.gen++
	if last, ok := m.chatView.Messages.Last(); ok && last.Pending {
		content := last.Content
		if content == "" {
			content = "(cancelled)"
		}
		m.chatView.UpdateLastMessage(content, false)
	}
	m.finishTurn()
	m.chatView.AddMessage(components.ChatMessage{Role: components.RoleSystem, Content: "Reply cancelled."})
}

func (m *Model) showOpenFailure(err error) {
	m.deps.Logger.Warn("reply stream could not start", "target", m.deps.Target, "error", err)
	m.chatView.UpdateLastMessage(m.deps.Fallback, false)
	m.chatView.AddMessage(components.ChatMessage{
		Role:    components.RoleError,
		Content: uxerror.Humanize(err).Render(),
	})
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.waiting {
			m.cancelTurn()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEsc:
		if !m.waiting && !m.deps.Interactive {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	}

	if !m.deps.Interactive {
		switch msg.String() {
		case "q":
			if !m.waiting {
				m.quitting = true
				return m, tea.Quit
			}
		case "j", "down":
			m.chatView.Viewport.LineDown(3)
		case "k", "up":
			m.chatView.Viewport.LineUp(3)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSubmit(value string) (tea.Model, tea.Cmd) {
	if cmd, _, ok := components.ParseSlashCommand(value); ok {
		return m.handleSlashCommand(cmd)
	}
	if m.waiting {
		return m, nil
	}
	cmd := m.beginTurn(value)
	return m, cmd
}

func (m Model) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	switch cmd {
	case "/help":
		m.chatView.AddMessage(components.ChatMessage{
			Role: components.RoleSystem,
			Content: `Commands:
  /help    - Show this help
  /cancel  - Stop the reply in progress
  /clear   - Clear the screen
  /quit    - Close

Keys:
  Enter      - Send
  Alt+Enter  - New line
  PgUp/PgDn  - Scroll
  Ctrl+C     - Stop reply / quit`,
		})
		return m, nil

	case "/quit", "/exit":
		m.quitting = true
		return m, tea.Quit

	case "/clear":
		m.chatView.Clear()
		return m, nil

	case "/cancel":
		if m.waiting {
			m.cancelTurn()
		} else {
			m.chatView.AddMessage(components.ChatMessage{Role: components.RoleSystem, Content: "No reply in progress."})
		}
		return m, nil

	default:
		m.chatView.AddMessage(components.ChatMessage{
			Role:    components.RoleSystem,
			Content: "Unknown command: " + cmd + ". Type /help for commands.",
		})
		return m, nil
	}
}

func (m Model) hints() []components.KeyHint {
	if !m.deps.Interactive {
		return []components.KeyHint{
			{Key: "j/k", Desc: "Scroll"},
			{Key: "q", Desc: "Close"},
		}
	}
	return []components.KeyHint{
		{Key: "Enter", Desc: "Send"},
		{Key: "Alt+Enter", Desc: "Newline"},
		{Key: "/help", Desc: "Commands"},
		{Key: "Ctrl+C", Desc: "Stop/Quit"},
	}
}

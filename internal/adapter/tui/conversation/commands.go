package conversation

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"careerprep/internal/usecase"
)

// startTurnCmd starts the reply stream for one turn. Stream callbacks run on
// the consumer goroutine and reach the update loop through send.
func startTurnCmd(ctx context.Context, deps Deps, input string, gen uint64, send func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		session, err := deps.Streams.Start(ctx, deps.Target, deps.Kind, deps.Open(input), usecase.StreamHandlers{
			OnUpdate: func(id, text string) {
				send(StreamUpdateMsg{Gen: gen, SessionID: id, Text: text})
			},
			OnError: func(id string, err error) {
				send(StreamFailedMsg{Gen: gen, SessionID: id, Err: err})
			},
			OnComplete: func(id, text string) {
				send(StreamDoneMsg{Gen: gen, SessionID: id, Text: text})
			},
		})
		if err != nil {
			return turnStartedMsg{Gen: gen, Err: err}
		}
		return turnStartedMsg{Gen: gen, SessionID: session.ID()}
	}
}

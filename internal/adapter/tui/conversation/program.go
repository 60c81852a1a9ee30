package conversation

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Run opens the conversation view and blocks until the user quits or ctx
// ends. Any reply still streaming is cancelled on the way out.
func Run(ctx context.Context, deps Deps, opts ...tea.ProgramOption) error {
	var program atomic.Pointer[tea.Program]
	send := func(msg tea.Msg) {
		if p := program.Load(); p != nil {
			p.Send(msg)
		}
	}

	model := New(ctx, deps, send)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}, opts...)
	p := tea.NewProgram(model, opts...)
	program.Store(p)
	defer deps.Streams.Cancel(deps.Target)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			p.Send(QuitMsg{})
		case <-stop:
		}
	}()

	_, err := p.Run()
	return err
}

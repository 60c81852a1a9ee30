// Package console renders stream progress and command output as plain text,
// for pipes and terminals where the full-screen view is off.
package console

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"careerprep/internal/adapter/tui/uxerror"
	"careerprep/internal/domain"
	"careerprep/internal/usecase"
)

// DefaultFallback is printed in place of a reply whose stream failed.
const DefaultFallback = "죄송합니다. 오류가 발생했습니다."

// Printer writes one session's text to w as it grows. Safe for concurrent use.
type Printer struct {
	w        io.Writer
	mode     domain.TokenMode
	fallback string
	logger   *slog.Logger

	mu      sync.Mutex
	session string
	written string
	err     error
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithFallback sets the message printed when a stream fails.
func WithFallback(msg string) PrinterOption {
	return func(p *Printer) {
		if msg != "" {
			p.fallback = msg
		}
	}
}

// WithLogger sets the logger used for stream failures.
func WithLogger(l *slog.Logger) PrinterOption {
	return func(p *Printer) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPrinter creates a Printer. In append mode each update prints only what
// was added since the last one; in replace mode nothing is printed until the
// stream completes.
func NewPrinter(w io.Writer, mode domain.TokenMode, opts ...PrinterOption) *Printer {
	p := &Printer{
		w:        w,
		mode:     mode,
		fallback: DefaultFallback,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handlers returns the callbacks to pass to StreamManager.Start.
func (p *Printer) Handlers() usecase.StreamHandlers {
	return usecase.StreamHandlers{
		OnUpdate:   p.update,
		OnError:    p.fail,
		OnComplete: p.complete,
	}
}

// Err returns the error that ended the last session, if it failed.
func (p *Printer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Text returns what has been printed for the current session.
func (p *Printer) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

func (p *Printer) update(sessionID, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.accept(sessionID) || p.mode == domain.TokenReplace {
		return
	}
	p.writeSuffix(text)
}

func (p *Printer) complete(sessionID, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.accept(sessionID) {
		return
	}
	if p.mode == domain.TokenReplace {
		fmt.Fprint(p.w, text)
		p.written = text
	} else {
		p.writeSuffix(text)
	}
	if !strings.HasSuffix(p.written, "\n") {
		fmt.Fprintln(p.w)
	}
}

func (p *Printer) fail(sessionID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.accept(sessionID) {
		return
	}
	p.err = err
	p.logger.Warn("reply stream failed", "session", sessionID, "error", err)
	if p.written != "" && !strings.HasSuffix(p.written, "\n") {
		fmt.Fprintln(p.w)
	}
	fmt.Fprintln(p.w, p.fallback)
}

// accept pins the printer to the first session it hears from after Reset.
func (p *Printer) accept(sessionID string) bool {
	if p.session == "" {
		p.session = sessionID
		return true
	}
	return p.session == sessionID
}

// writeSuffix prints the part of text not yet printed. A text that no longer
// extends what was printed starts on a fresh line.
func (p *Printer) writeSuffix(text string) {
	if strings.HasPrefix(text, p.written) {
		fmt.Fprint(p.w, text[len(p.written):])
	} else {
		fmt.Fprintf(p.w, "\n%s", text)
	}
	p.written = text
}

// Reset prepares the printer for a new session.
func (p *Printer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = ""
	p.written = ""
	p.err = nil
}

// PrintError writes a user-facing explanation of err.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, uxerror.Humanize(err).Render())
}

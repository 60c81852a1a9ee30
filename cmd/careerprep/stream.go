package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"careerprep/internal/adapter/console"
	"careerprep/internal/adapter/tui/components"
	"careerprep/internal/adapter/tui/conversation"
	"careerprep/internal/domain"
	"careerprep/internal/usecase"
)

// streamRequest describes a streamed reply, or a conversation of them.
type streamRequest struct {
	target      string
	kind        domain.StreamKind
	title       string
	placeholder string
	// open builds the request for one turn; input is empty for the opening turn.
	open func(input string) usecase.OpenFunc
	// opening starts a reply without waiting for input.
	opening bool
	// interactive reads follow-up turns from the user.
	interactive bool
	history     []components.ChatMessage
}

// runStream renders req with the full-screen view or as plain text.
func runStream(cmd *cobra.Command, opts *globalOptions, a *app, req streamRequest) error {
	ctx := cmd.Context()
	if opts.useTUI() {
		return conversation.Run(ctx, conversation.Deps{
			Streams:     a.streams,
			Target:      req.target,
			Kind:        req.kind,
			Open:        req.open,
			Title:       req.title,
			Placeholder: req.placeholder,
			Fallback:    a.cfg.Streams.FallbackMessage,
			Opening:     req.opening,
			Interactive: req.interactive,
			History:     req.history,
			Logger:      a.logger,
		})
	}

	mode := domain.TokenAppend
	if sc, ok := a.cfg.Streams.ForKind(string(req.kind)); ok {
		if m, err := domain.ParseTokenMode(sc.Mode); err == nil {
			mode = m
		}
	}
	printer := console.NewPrinter(cmd.OutOrStdout(), mode,
		console.WithFallback(a.cfg.Streams.FallbackMessage),
		console.WithLogger(a.logger),
	)

	if req.opening {
		if err := plainTurn(ctx, cmd, a, printer, req, ""); err != nil {
			if !req.interactive || errors.Is(err, errInterrupted) {
				return err
			}
			console.PrintError(cmd.ErrOrStderr(), err)
		}
	}
	if !req.interactive {
		return nil
	}

	sc := bufio.NewScanner(cmd.InOrStdin())
	for sc.Scan() {
		input := strings.TrimSpace(sc.Text())
		if input == "" {
			continue
		}
		if err := plainTurn(ctx, cmd, a, printer, req, input); err != nil {
			if errors.Is(err, errInterrupted) {
				return err
			}
			console.PrintError(cmd.ErrOrStderr(), err)
		}
	}
	return sc.Err()
}

// plainTurn streams one reply to the printer. Ctrl+C stops the reply.
func plainTurn(ctx context.Context, cmd *cobra.Command, a *app, printer *console.Printer, req streamRequest, input string) error {
	printer.Reset()
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if _, err := a.streams.Start(sigCtx, req.target, req.kind, req.open(input), printer.Handlers()); err != nil {
		if errors.Is(err, domain.ErrStreamCancelled) {
			fmt.Fprintln(cmd.ErrOrStderr(), "(cancelled)")
			return errInterrupted
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.cfg.Streams.FallbackMessage)
		return err
	}

	if err := a.streams.Wait(sigCtx, req.target); err != nil {
		a.streams.Cancel(req.target)
		fmt.Fprintln(cmd.ErrOrStderr(), "\n(cancelled)")
		return errInterrupted
	}
	return printer.Err()
}

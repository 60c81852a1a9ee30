// Command careerprep is a terminal client for the career-prep coaching
// service: roadmaps, step guides, the roadmap assistant and mock interviews.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"careerprep/internal/adapter/console"
	"careerprep/internal/infra/config"
)

// errSilent marks a failure whose explanation has already been printed.
var errSilent = errors.New("silent failure")

// errInterrupted is returned when the user stopped a reply with Ctrl+C.
var errInterrupted = errors.New("interrupted")

type globalOptions struct {
	configPath string
	tui        bool
	plain      bool
}

// useTUI reports whether the full-screen view should be used. Explicit flags
// win; otherwise it is used when both stdin and stdout are terminals.
func (o *globalOptions) useTUI() bool {
	switch {
	case o.plain:
		return false
	case o.tui:
		return true
	}
	return isTerminal(os.Stdout.Fd()) && isTerminal(os.Stdin.Fd())
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "careerprep",
		Short:         "Career-prep coaching from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", defaultConfigPath(), "path to config file")
	pf.BoolVar(&opts.tui, "tui", false, "force the full-screen view")
	pf.BoolVar(&opts.plain, "plain", false, "force plain text output")
	root.MarkFlagsMutuallyExclusive("tui", "plain")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newRegisterCmd(opts),
		newAPITokenCmd(opts),
		newProfileCmd(opts),
		newRoadmapCmd(opts),
		newGuideCmd(opts),
		newAssistantCmd(opts),
		newInterviewCmd(opts),
		newHistoryCmd(opts),
		newDoctorCmd(opts),
	)
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("CAREERPREP_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath()
}

// withApp wires the runtime for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts.configPath, opts.useTUI())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	switch {
	case err == nil:
		return
	case errors.Is(err, errInterrupted):
		stop()
		os.Exit(130)
	case errors.Is(err, errSilent):
	default:
		console.PrintError(os.Stderr, err)
	}
	stop()
	os.Exit(1)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"careerprep/internal/adapter/console"
	"careerprep/internal/domain"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		limit int
		full  bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently streamed replies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				n := limit
				if n <= 0 {
					n = a.cfg.Store.HistoryLimit
				}
				list, err := a.history.Recent(ctx, n)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					printf(cmd, "No history yet.\n")
					return nil
				}
				if full {
					printTranscripts(cmd.OutOrStdout(), list)
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, t := range list {
					rows = append(rows, []string{
						t.EndedAt.Local().Format("2006-01-02 15:04"),
						string(t.Kind),
						t.Target,
						t.Status,
						t.Text,
					})
				}
				return console.Table(cmd.OutOrStdout(), []string{"time", "kind", "target", "status", "text"}, rows)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries (default store.history_limit)")
	cmd.Flags().BoolVar(&full, "full", false, "print whole replies")
	return cmd
}

func printTranscripts(w io.Writer, list []domain.Transcript) {
	for i, t := range list {
		if i > 0 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
		fmt.Fprintf(w, "%s  %s  %s  (%s, %s)\n", t.EndedAt.Local().Format("2006-01-02 15:04:05"),
			t.Kind, t.Target, t.Status, t.EndedAt.Sub(t.StartedAt).Round(time.Millisecond))
		if t.Error != "" {
			fmt.Fprintf(w, "error: %s\n", t.Error)
		}
		fmt.Fprintln(w, strings.TrimSpace(t.Text))
	}
}

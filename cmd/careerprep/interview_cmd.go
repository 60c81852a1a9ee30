package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"careerprep/internal/adapter/console"
	"careerprep/internal/adapter/tui/components"
	"careerprep/internal/domain"
	"careerprep/internal/usecase"
)

func newInterviewCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Practice mock interviews",
	}
	cmd.AddCommand(
		newInterviewTemplatesCmd(opts),
		newInterviewCreateCmd(opts),
		newInterviewHistoryCmd(opts),
		newInterviewStartCmd(opts),
		newInterviewAnswerCmd(opts),
	)
	return cmd
}

func newInterviewTemplatesCmd(opts *globalOptions) *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List your interview templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				p, err := a.client.Templates(ctx, page, size)
				if err != nil {
					return err
				}
				if len(p.Templates) == 0 {
					printf(cmd, "No interviews yet. Create one with 'careerprep interview create --theme ...'.\n")
					return nil
				}
				rows := make([][]string, 0, len(p.Templates))
				for _, t := range p.Templates {
					created := ""
					if !t.CreatedAt.IsZero() {
						created = t.CreatedAt.Local().Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{t.ID, t.Theme, created})
				}
				if err := console.Table(cmd.OutOrStdout(), []string{"id", "theme", "created"}, rows); err != nil {
					return err
				}
				if p.TotalPages > 1 {
					printf(cmd, "\npage %d of %d\n", p.Page, p.TotalPages)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 10, "templates per page")
	return cmd
}

func newInterviewCreateCmd(opts *globalOptions) *cobra.Command {
	var theme string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an interview template on a theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(theme) == "" {
				return fmt.Errorf("%w: --theme is required", domain.ErrInvalidInput)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				created, err := a.client.CreateTemplate(ctx, theme)
				if err != nil {
					return err
				}
				printf(cmd, "Interview %s created (%s). Start it with 'careerprep interview start %s'.\n",
					created.InterviewID, created.Theme, created.InterviewID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "interview theme, e.g. \"Go backend\"")
	return cmd
}

func newInterviewHistoryCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <templateID>",
		Short: "Show the messages of an interview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				msgs, err := interviewMessages(ctx, a, args[0])
				if err != nil {
					return err
				}
				if len(msgs) == 0 {
					printf(cmd, "No messages yet.\n")
					return nil
				}
				for _, m := range msgs {
					printf(cmd, "[%s]\n%s\n\n", m.Sender, strings.TrimSpace(m.Content))
				}
				return nil
			})
		},
	}
}

// interviewMessages follows the cursor until every page is read.
func interviewMessages(ctx context.Context, a *app, templateID string) ([]domain.InterviewMessage, error) {
	var all []domain.InterviewMessage
	cursor := ""
	for {
		page, err := a.client.Messages(ctx, templateID, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)
		if page.Cursor == nil || *page.Cursor == "" || *page.Cursor == cursor {
			return all, nil
		}
		cursor = *page.Cursor
	}
}

func newInterviewStartCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <templateID>",
		Short: "Start an interview and answer its questions",
		Long: `Start an interview. The interviewer asks the first question; each answer
you send gets a follow-up. With --plain, answers are read from stdin one
per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templateID := args[0]
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				req := interviewRequest(a, templateID)
				req.opening = true
				req.interactive = true
				if opts.useTUI() {
					// Earlier turns give context when an interview is resumed.
					if msgs, err := interviewMessages(ctx, a, templateID); err == nil {
						req.history = interviewBubbles(msgs)
					} else {
						a.logger.Debug("interview history unavailable", "template", templateID, "error", err)
					}
				}
				return runStream(cmd, opts, a, req)
			})
		},
	}
}

func newInterviewAnswerCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <templateID> <answer>",
		Short: "Send one answer and stream the interviewer's reply",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			templateID, answer := args[0], strings.TrimSpace(args[1])
			if answer == "" {
				return fmt.Errorf("%w: answer is empty", domain.ErrInvalidInput)
			}
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				req := interviewRequest(a, templateID)
				base := req.open
				req.open = func(input string) usecase.OpenFunc {
					if input == "" {
						input = answer
					}
					return base(input)
				}
				req.opening = true
				req.history = userBubble(answer)
				return runStream(cmd, opts, a, req)
			})
		},
	}
}

// interviewRequest opens the first question for an empty input and a
// follow-up for an answer.
func interviewRequest(a *app, templateID string) streamRequest {
	return streamRequest{
		target:      "interview:" + templateID,
		kind:        domain.StreamInterview,
		title:       "Mock interview",
		placeholder: "Type your answer...",
		open: func(input string) usecase.OpenFunc {
			return func(ctx context.Context) (io.ReadCloser, error) {
				if input == "" {
					return a.client.StartInterview(ctx, templateID)
				}
				return a.client.Answer(ctx, templateID, input)
			}
		},
	}
}

func interviewBubbles(msgs []domain.InterviewMessage) []components.ChatMessage {
	out := make([]components.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		role := components.RoleCoach
		if m.Sender == domain.SenderUser {
			role = components.RoleUser
		}
		out = append(out, components.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}

func userBubble(text string) []components.ChatMessage {
	return []components.ChatMessage{{Role: components.RoleUser, Content: text}}
}

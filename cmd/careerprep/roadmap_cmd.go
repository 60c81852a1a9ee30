package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"careerprep/internal/adapter/console"
	"careerprep/internal/domain"
	"careerprep/internal/usecase"
)

// guideTarget is shared by every step guide: opening one supersedes the last.
const guideTarget = "step-guide"

func newRoadmapCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roadmap",
		Short: "Create and browse learning roadmaps",
	}
	cmd.AddCommand(
		newRoadmapCreateCmd(opts),
		newRoadmapListCmd(opts),
		newRoadmapShowCmd(opts),
		newRoadmapResourcesCmd(opts),
		newRoadmapBookmarksCmd(opts),
		newRoadmapBookmarkCmd(opts),
	)
	return cmd
}

func newRoadmapCreateCmd(opts *globalOptions) *cobra.Command {
	var req domain.CreateRoadmapRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate a roadmap for a target job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(req.TargetJob) == "" {
				return fmt.Errorf("%w: --job is required", domain.ErrInvalidInput)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				id, err := a.client.CreateRoadmap(ctx, req)
				if err != nil {
					return err
				}
				printf(cmd, "Roadmap %s created. Show it with 'careerprep roadmap show %s'.\n", id, id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.TargetJob, "job", "", "target job, e.g. \"backend developer\"")
	cmd.Flags().StringVar(&req.Instruct, "instruct", "", "extra instructions for the generator")
	return cmd
}

func newRoadmapListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your roadmaps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				list, err := a.client.Roadmaps(ctx)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					printf(cmd, "No roadmaps yet. Create one with 'careerprep roadmap create --job ...'.\n")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, r := range list {
					rows = append(rows, []string{r.ID, r.Title, r.CreatedAt, r.UpdatedAt})
				}
				return console.Table(cmd.OutOrStdout(), []string{"id", "title", "created", "updated"}, rows)
			})
		},
	}
}

func newRoadmapShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <roadmapID>",
		Short: "Show the steps of a roadmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				r, err := a.client.Roadmap(ctx, args[0])
				if err != nil {
					return err
				}
				printRoadmap(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
}

func printRoadmap(w io.Writer, r *domain.Roadmap) {
	fmt.Fprintf(w, "%s (%s)\n\n", r.Title, r.ID)
	for _, s := range r.Steps {
		mark := " "
		if s.IsBookmarked {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %2d. %s  [%s]\n", mark, s.Step, s.Title, s.ID)
		if s.Description != "" {
			fmt.Fprintf(w, "      %s\n", console.Clip(s.Description, 100))
		}
		if len(s.Tags) > 0 {
			fmt.Fprintf(w, "      #%s\n", strings.Join(s.Tags, " #"))
		}
	}
}

func newRoadmapResourcesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resources <stepID>",
		Short: "List learning resources for a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				res, err := a.client.StepResources(ctx, args[0])
				if err != nil {
					return err
				}
				if len(res) == 0 {
					printf(cmd, "No resources for step %s.\n", args[0])
					return nil
				}
				for i, r := range res {
					printf(cmd, "%d. %s\n", i+1, r.URL)
				}
				return nil
			})
		},
	}
}

func newRoadmapBookmarksCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bookmarks",
		Short: "List bookmarked steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				steps, err := a.client.Bookmarks(ctx)
				if err != nil {
					return err
				}
				if len(steps) == 0 {
					printf(cmd, "No bookmarks.\n")
					return nil
				}
				rows := make([][]string, 0, len(steps))
				for _, s := range steps {
					rows = append(rows, []string{s.StepID, s.Title, s.RoadmapID})
				}
				return console.Table(cmd.OutOrStdout(), []string{"step", "title", "roadmap"}, rows)
			})
		},
	}
}

func newRoadmapBookmarkCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bookmark <stepID>",
		Short: "Toggle the bookmark on a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.client.ToggleBookmark(ctx, args[0]); err != nil {
					return err
				}
				printf(cmd, "Bookmark toggled for step %s.\n", args[0])
				return nil
			})
		},
	}
}

func newGuideCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "guide <stepID>",
		Short: "Stream the study guide for a roadmap step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stepID := args[0]
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				return runStream(cmd, opts, a, streamRequest{
					target: guideTarget,
					kind:   domain.StreamStepGuide,
					title:  "Step guide " + stepID,
					open: func(string) usecase.OpenFunc {
						return func(ctx context.Context) (io.ReadCloser, error) {
							return a.client.StepGuide(ctx, stepID)
						}
					},
					opening: true,
				})
			})
		},
	}
}

func newAssistantCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assistant <roadmapID> [message]",
		Short: "Chat with the roadmap assistant",
		Long: `Chat with the assistant about a roadmap. With a message, the first reply
starts right away; without one, type questions at the prompt (or on stdin
with --plain, one per line).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roadmapID := args[0]
			var first string
			if len(args) == 2 {
				first = strings.TrimSpace(args[1])
			}
			if strings.TrimSpace(roadmapID) == "" {
				return fmt.Errorf("%w: roadmap ID is empty", domain.ErrInvalidInput)
			}

			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				req := streamRequest{
					target:      "assistant:" + roadmapID,
					kind:        domain.StreamAssistant,
					title:       "Roadmap assistant",
					placeholder: "Ask about this roadmap...",
					open: func(input string) usecase.OpenFunc {
						if input == "" {
							input = first
						}
						return func(ctx context.Context) (io.ReadCloser, error) {
							return a.client.Assistant(ctx, roadmapID, input)
						}
					},
					interactive: first == "" || opts.useTUI(),
				}
				if first != "" {
					req.opening = true
					req.history = userBubble(first)
				}
				return runStream(cmd, opts, a, req)
			})
		},
	}
}

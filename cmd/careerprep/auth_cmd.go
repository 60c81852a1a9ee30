package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"careerprep/internal/domain"
)

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a Kakao authorization code",
		Long: `Log in with the authorization code from the Kakao OAuth redirect
(the "code" query parameter of /oauth/kakao/callback).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("%w: --code is required", domain.ErrInvalidInput)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				u, err := a.auth.Login(ctx, code)
				if err != nil {
					return err
				}
				printf(cmd, "Logged in as %s (%s)\n", displayName(u.Nickname, u.ID), u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code from the OAuth redirect")
	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.auth.Logout(ctx); err != nil {
					return err
				}
				printf(cmd, "Logged out.\n")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if !a.auth.IsAuthenticated(ctx) {
					return domain.ErrNotAuthenticated
				}
				info, err := a.client.Me(ctx)
				if err != nil {
					return err
				}
				printf(cmd, "ID:       %s\n", info.ID)
				printf(cmd, "Username: %s\n", info.Username)
				printf(cmd, "Nickname: %s\n", info.Nickname)
				if info.Email != "" {
					printf(cmd, "Email:    %s\n", info.Email)
				}
				return nil
			})
		},
	}
}

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var req domain.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a username/password account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Username == "" || req.Nickname == "" {
				return fmt.Errorf("%w: --username and --nickname are required", domain.ErrInvalidInput)
			}
			if req.Password == "" {
				pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				req.Password = pw
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.client.Register(ctx, req); err != nil {
					return err
				}
				printf(cmd, "Account %s created.\n", req.Username)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "login name")
	f.StringVar(&req.Nickname, "nickname", "", "display name")
	f.StringVar(&req.Password, "password", os.Getenv("CAREERPREP_PASSWORD"), "password (prompted when empty)")
	return cmd
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("%w: empty password", domain.ErrInvalidInput)
	}
	return line, nil
}

func newAPITokenCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "api-token",
		Short: "Issue a long-lived API token for the signed-in account",
		Long: `Issue a long-lived API token. Put it in api.token or CAREERPREP_API_TOKEN
to use careerprep without an interactive login.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				tok, err := a.client.IssueAPIToken(ctx)
				if err != nil {
					return err
				}
				printf(cmd, "%s\n", tok)
				return nil
			})
		},
	}
}

func newProfileCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showProfile(cmd, opts)
		},
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showProfile(cmd, opts)
		},
	}

	var bio string
	set := &cobra.Command{
		Use:   "set",
		Short: "Update your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("bio") {
				return fmt.Errorf("%w: nothing to update, pass --bio", domain.ErrInvalidInput)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.client.UpdateProfile(ctx, bio); err != nil {
					return err
				}
				printf(cmd, "Profile updated.\n")
				return nil
			})
		},
	}
	set.Flags().StringVar(&bio, "bio", "", "short introduction shown on your page")

	cmd.AddCommand(get, set)
	return cmd
}

func showProfile(cmd *cobra.Command, opts *globalOptions) error {
	return withApp(cmd, opts, func(ctx context.Context, a *app) error {
		p, err := a.client.Profile(ctx)
		if err != nil {
			return err
		}
		bio := p.Bio
		if bio == "" {
			bio = "(empty)"
		}
		printf(cmd, "Bio: %s\n", bio)
		return nil
	})
}

func displayName(nickname, id string) string {
	if nickname != "" {
		return nickname
	}
	return id
}

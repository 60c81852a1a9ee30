package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"careerprep/internal/adapter/store"
	"careerprep/internal/domain"
	"careerprep/internal/infra/config"
	"careerprep/internal/usecase"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

func newDoctorCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, local store, login and backend reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), opts.configPath)
		},
	}
}

// runDoctor executes all health checks and reports results.
func runDoctor(ctx context.Context, w io.Writer, cfgPath string) error {
	// Some checks work without a loaded config.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Stream settings", Fn: checkStreams},
		{Name: "Local store", Fn: checkStore(ctx)},
		{Name: "Backend", Fn: checkBackend(ctx)},
	}

	fmt.Fprintln(w, "careerprep doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed: %w", fail, errSilent)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile reports whether the config file exists and loads. A missing
// file is only a warning: defaults and env overrides still apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config could not be loaded: %v", cfgErr),
				Fix:     "Fix the reported fields in " + cfgPath,
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, using defaults", cfgPath),
				Fix:     "Create it to set api.base_url and stream fields",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

func checkStreams(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	if _, err := usecase.SpecsFromConfig(cfg.Streams); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     `Use mode "append" or "replace"`,
		}
	}
	return CheckResult{
		Status: StatusPass,
		Message: fmt.Sprintf("assistant=%s/%s guide=%s/%s interview=%s/%s",
			cfg.Streams.Assistant.TokenField, cfg.Streams.Assistant.Mode,
			cfg.Streams.StepGuide.TokenField, cfg.Streams.StepGuide.Mode,
			cfg.Streams.Interview.TokenField, cfg.Streams.Interview.Mode),
	}
}

// checkStore opens the local store and reports the login state it holds.
func checkStore(ctx context.Context) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
		}
		var opts []store.Option
		if cfg.Store.Passphrase != "" {
			opts = append(opts, store.WithPassphrase(cfg.Store.Passphrase))
		}
		st, err := store.Open(cfg.Store.Path, opts...)
		if err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: err.Error(),
				Fix:     "Check that the directory of store.path is writable",
			}
		}
		defer st.Close()

		u, err := st.LoadUser(ctx)
		switch {
		case errors.Is(err, domain.ErrDecryption):
			return CheckResult{
				Status:  StatusFail,
				Message: "stored login cannot be decrypted",
				Fix:     "Set the CAREERPREP_STORE_KEY used at login, or run 'careerprep logout'",
			}
		case err != nil:
			return CheckResult{Status: StatusFail, Message: err.Error()}
		case cfg.API.Token != "":
			return CheckResult{Status: StatusPass, Message: "using the API token from config"}
		case u == nil || u.Token == "":
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("%s is ready, nobody is logged in", cfg.Store.Path),
				Fix:     "Run 'careerprep login --code <code>'",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("logged in as %s", displayName(u.Nickname, u.ID)),
		}
	}
}

// checkBackend reports whether base_url answers HTTP at all. Any status code
// counts; only transport failures fail the check.
func checkBackend(ctx context.Context) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
		}
		timeout := cfg.API.ConnTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.API.BaseURL, nil)
		if err != nil {
			return CheckResult{Status: StatusFail, Message: err.Error(), Fix: "Check api.base_url"}
		}
		start := time.Now()
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("%s unreachable: %v", cfg.API.BaseURL, err),
				Fix:     "Check api.base_url and your network",
			}
		}
		resp.Body.Close()
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%s answered %d in %s", cfg.API.BaseURL, resp.StatusCode, time.Since(start).Round(time.Millisecond)),
		}
	}
}

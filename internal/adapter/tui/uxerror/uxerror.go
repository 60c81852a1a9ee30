// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the terminal views.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"careerprep/internal/adapter/tui/theme"
	"careerprep/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Login Required"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug)
}

// Render formats the FriendlyError for display.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Domain sentinels first so errors.Is works through wrapping.
	{
		match:   is(domain.ErrNotAuthenticated),
		produce: constantError("Login Required", "You are not logged in.", []string{"Run 'careerprep login --code <code>'", "Or set CAREERPREP_API_TOKEN to a generated API token"}),
	},
	{
		match:   is(domain.ErrUnauthorized),
		produce: constantError("Authentication Failed", "The server rejected your credentials.", []string{"Log in again with 'careerprep login'", "Issue a new token with 'careerprep api-token'"}),
	},
	{
		match:   is(domain.ErrCircuitOpen),
		produce: constantError("Service Unavailable", "Recent requests kept failing, so calls are paused for a moment.", []string{"Wait about 30 seconds and try again"}),
	},
	{
		match:   is(domain.ErrRateLimit),
		produce: constantError("Rate Limited", "Too many requests were sent to the server.", []string{"Wait a moment before retrying", "Lower api.rate_limit.requests_per_second in config"}),
	},
	{
		match:   is(domain.ErrStreamRead),
		produce: constantError("Connection Lost", "The reply stream was interrupted.", []string{"Ask again", "Check your network connection"}),
	},
	{
		match:   is(domain.ErrNotFound),
		produce: passthrough("Not Found", []string{"Check the ID you passed"}),
	},
	{
		match:   is(domain.ErrInvalidInput),
		produce: passthrough("Invalid Input", nil),
	},
	{
		match:   is(domain.ErrServer),
		produce: constantError("Server Error", "The server failed to handle the request.", []string{"Try again later"}),
	},
	{
		match:   is(domain.ErrDecryption),
		produce: constantError("Stored Login Unreadable", "The saved login could not be decrypted.", []string{"Check CAREERPREP_STORE_KEY", "Run 'careerprep logout' and log in again"}),
	},

	// Network patterns for errors that never became a sentinel.
	{
		match:   containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connection Failed", "Could not reach the server.", []string{"Check your internet connection", "Verify api.base_url in config"}),
	},
	{
		match:   containsAny("deadline exceeded", "timeout"),
		produce: constantError("Request Timed Out", "The request took too long to complete.", []string{"Try again", "Increase api.resp_timeout in config"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with CAREERPREP_LOGGER_LEVEL=debug for more details"},
		Raw:     err.Error(),
	}
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}

// passthrough keeps the error text as the message; it already says what was wrong.
func passthrough(title string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: err.Error(),
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}

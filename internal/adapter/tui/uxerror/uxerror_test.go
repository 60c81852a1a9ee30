package uxerror

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"careerprep/internal/domain"
)

func TestHumanize(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		title string
	}{
		{"not logged in", domain.ErrNotAuthenticated, "Login Required"},
		{"wrapped unauthorized", fmt.Errorf("api.Me: %w", domain.ErrUnauthorized), "Authentication Failed"},
		{"domain error", domain.NewDomainError("api.Roadmap", domain.ErrNotFound, "roadmap 9"), "Not Found"},
		{"circuit open", fmt.Errorf("%w: open", domain.ErrCircuitOpen), "Service Unavailable"},
		{"stream read", fmt.Errorf("%w: unexpected EOF", domain.ErrStreamRead), "Connection Lost"},
		{"server", domain.ErrServer, "Server Error"},
		{"dial", errors.New("dial tcp 127.0.0.1:8000: connect: connection refused"), "Connection Failed"},
		{"timeout", errors.New("Client.Timeout exceeded while awaiting headers"), "Request Timed Out"},
		{"unknown", errors.New("boom"), "Unexpected Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Humanize(tt.err)
			if got.Title != tt.title {
				t.Errorf("Title = %q, want %q", got.Title, tt.title)
			}
			if got.Raw != tt.err.Error() {
				t.Errorf("Raw = %q, want %q", got.Raw, tt.err.Error())
			}
		})
	}
}

func TestHumanize_Nil(t *testing.T) {
	if got := Humanize(nil); got.Title != "Unknown Error" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestFriendlyError_Render(t *testing.T) {
	fe := FriendlyError{Title: "Rate Limited", Message: "slow down", Hints: []string{"wait"}}
	out := fe.Render()
	for _, want := range []string{"Rate Limited", "slow down", "Suggestions:", "wait"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerprep/internal/domain"
	"careerprep/internal/infra/config"
)

// writeConfig writes a config pointing at baseURL with its store under a
// temp dir. token, when set, becomes api.token.
func writeConfig(t *testing.T, baseURL, token string) string {
	t.Helper()
	dir := t.TempDir()
	var sb strings.Builder
	fmt.Fprintf(&sb, "api:\n  base_url: %s\n", baseURL)
	if token != "" {
		fmt.Fprintf(&sb, "  token: %s\n", token)
	}
	fmt.Fprintf(&sb, "store:\n  path: %s\n", filepath.Join(dir, "careerprep.db"))
	sb.WriteString("logger:\n  level: error\n")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

type result struct {
	out    string
	errOut string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func writeSSE(w http.ResponseWriter, field string, tokens ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, tok := range tokens {
		data, _ := json.Marshal(map[string]string{field: tok})
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
}

// backend is a fake service. It records the bearer token of each request.
type backend struct {
	mu     sync.Mutex
	tokens []string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/kakao/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") != "good-code" {
			http.Error(w, `{"message":"bad code"}`, http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-1","user_id":"u1","nickname":"Kim"}`)
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		fmt.Fprint(w, `{"id":"u1","username":"kim","nickname":"Kim"}`)
	})
	mux.HandleFunc("GET /roadmap", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		fmt.Fprint(w, `{"roadmaps":[{"uid":"42","title":"Backend developer","created_at":"2026-01-02","updated_at":"2026-01-03"}]}`)
	})
	mux.HandleFunc("GET /roadmap/step/{id}/guide", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeSSE(w, "content", "Step ", r.PathValue("id"), " guide")
	})
	mux.HandleFunc("POST /roadmap/{id}/assistant", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		var in struct {
			UserInput string `json:"user_input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.UserInput == "boom" {
			http.Error(w, `{"message":"model crashed"}`, http.StatusInternalServerError)
			return
		}
		writeSSE(w, "token", "echo:", in.UserInput)
	})
	return mux
}

func (b *backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

func (b *backend) lastToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tokens) == 0 {
		return ""
	}
	return b.tokens[len(b.tokens)-1]
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	return b, srv
}

func TestLoginWhoamiLogout(t *testing.T) {
	b, srv := newBackend(t)
	cfg := writeConfig(t, srv.URL, "")

	res := execute(t, "", "--config", cfg, "--plain", "login", "--code", "good-code")
	require.NoError(t, res.err)
	assert.Equal(t, "Logged in as Kim (u1)\n", res.out)

	res = execute(t, "", "--config", cfg, "--plain", "whoami")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Username: kim")
	assert.Equal(t, "tok-1", b.lastToken(), "the stored token is sent")

	res = execute(t, "", "--config", cfg, "--plain", "logout")
	require.NoError(t, res.err)
	assert.Equal(t, "Logged out.\n", res.out)

	res = execute(t, "", "--config", cfg, "--plain", "whoami")
	assert.True(t, errors.Is(res.err, domain.ErrNotAuthenticated))
}

func TestLogin_RejectedCode(t *testing.T) {
	_, srv := newBackend(t)
	cfg := writeConfig(t, srv.URL, "")

	res := execute(t, "", "--config", cfg, "--plain", "login", "--code", "stale")
	assert.True(t, errors.Is(res.err, domain.ErrUnauthorized))

	res = execute(t, "", "--config", cfg, "--plain", "login")
	assert.True(t, errors.Is(res.err, domain.ErrInvalidInput))
}

func TestGuide_PlainStreamsAndRecordsHistory(t *testing.T) {
	b, srv := newBackend(t)
	cfg := writeConfig(t, srv.URL, "static-token")

	res := execute(t, "", "--config", cfg, "--plain", "guide", "7")
	require.NoError(t, res.err)
	assert.Equal(t, "Step 7 guide\n", res.out)
	assert.Equal(t, "static-token", b.lastToken())

	res = execute(t, "", "--config", cfg, "--plain", "history", "--full")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "step_guide")
	assert.Contains(t, res.out, guideTarget)
	assert.Contains(t, res.out, "completed")
	assert.Contains(t, res.out, "Step 7 guide")
}

func TestAssistant_PlainReadsTurnsFromStdin(t *testing.T) {
	_, srv := newBackend(t)
	cfg := writeConfig(t, srv.URL, "static-token")

	res := execute(t, "hello\n\nworld\n", "--config", cfg, "--plain", "assistant", "42")
	require.NoError(t, res.err)
	assert.Equal(t, "echo:hello\necho:world\n", res.out)
}

func TestAssistant_SingleMessage(t *testing.T) {
	_, srv := newBackend(t)
	cfg := writeConfig(t, srv.URL, "static-token")

	res := execute(t, "ignored\n", "--config", cfg, "--plain", "assistant", "42", "로드맵 설명해줘")
	require.NoError(t, res.err)
	assert.Equal(t, "echo:로드맵 설명해줘\n", res.out)
}

func TestAssistant_OpenFailurePrintsFallback(t *testing.T) {
	_, srv := newBackend(t)
	cfg := writeConfig(t, srv.URL, "static-token")

	res := execute(t, "", "--config", cfg, "--plain", "assistant", "42", "boom")
	require.Error(t, res.err)
	assert.True(t, errors.Is(res.err, domain.ErrServer))
	assert.Equal(t, config.DefaultFallbackMessage+"\n", res.out)
}

func TestAssistant_NotLoggedIn(t *testing.T) {
	_, srv := newBackend(t)
	cfg := writeConfig(t, srv.URL, "")

	res := execute(t, "", "--config", cfg, "--plain", "assistant", "42", "hi")
	assert.True(t, errors.Is(res.err, domain.ErrNotAuthenticated))
	assert.Contains(t, res.out, config.DefaultFallbackMessage)
}

func TestRoadmapList(t *testing.T) {
	_, srv := newBackend(t)
	cfg := writeConfig(t, srv.URL, "static-token")

	res := execute(t, "", "--config", cfg, "--plain", "roadmap", "list")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimRight(res.out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Backend developer")
}

func TestHistory_Empty(t *testing.T) {
	_, srv := newBackend(t)
	cfg := writeConfig(t, srv.URL, "")

	res := execute(t, "", "--config", cfg, "--plain", "history")
	require.NoError(t, res.err)
	assert.Equal(t, "No history yet.\n", res.out)
}

func TestFlags_TUIAndPlainExclusive(t *testing.T) {
	res := execute(t, "", "--tui", "--plain", "history")
	assert.Error(t, res.err)
}

func TestGlobalOptions_UseTUI(t *testing.T) {
	assert.False(t, (&globalOptions{plain: true}).useTUI())
	assert.True(t, (&globalOptions{tui: true}).useTUI())
}

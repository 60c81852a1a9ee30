package console

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerprep/internal/domain"
)

func quiet() PrinterOption {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPrinter_AppendWritesOnlyNewSuffix(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, domain.TokenAppend, quiet())
	h := p.Handlers()

	h.OnUpdate("s1", "안녕")
	h.OnUpdate("s1", "안녕하세요")
	h.OnUpdate("s1", "안녕하세요, 반갑습니다")
	h.OnComplete("s1", "안녕하세요, 반갑습니다")

	assert.Equal(t, "안녕하세요, 반갑습니다\n", buf.String())
	assert.NoError(t, p.Err())
}

func TestPrinter_ReplaceWritesFinalValueOnce(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, domain.TokenReplace, quiet())
	h := p.Handlers()

	h.OnUpdate("s1", "draft one")
	h.OnUpdate("s1", "draft two")
	assert.Empty(t, buf.String())

	h.OnComplete("s1", "final answer\n")
	assert.Equal(t, "final answer\n", buf.String())
}

func TestPrinter_ErrorWritesFallback(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, domain.TokenAppend, quiet(), WithFallback("fallback!"))
	h := p.Handlers()

	h.OnUpdate("s1", "partial")
	streamErr := fmt.Errorf("%w: connection reset", domain.ErrStreamRead)
	h.OnError("s1", streamErr)

	assert.Equal(t, "partial\nfallback!\n", buf.String())
	assert.True(t, errors.Is(p.Err(), domain.ErrStreamRead))
}

func TestPrinter_IgnoresOtherSessions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, domain.TokenAppend, quiet())
	h := p.Handlers()

	h.OnUpdate("s1", "mine")
	h.OnUpdate("s2", "stray text")
	h.OnError("s2", errors.New("boom"))
	h.OnComplete("s1", "mine!")

	assert.Equal(t, "mine!\n", buf.String())
	assert.NoError(t, p.Err())

	p.Reset()
	buf.Reset()
	h.OnComplete("s2", "next")
	assert.Equal(t, "next\n", buf.String())
	assert.Equal(t, "next", p.Text())
}

func TestPrinter_NonPrefixUpdateStartsFreshLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, domain.TokenAppend, quiet())
	h := p.Handlers()

	h.OnUpdate("s1", "abc")
	h.OnUpdate("s1", "xyz")
	assert.Equal(t, "abc\nxyz", buf.String())
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, fmt.Errorf("load user: %w", domain.ErrNotAuthenticated))
	assert.True(t, strings.HasPrefix(buf.String(), "Login Required"))

	buf.Reset()
	PrintError(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	err := Table(&buf, []string{"id", "title"}, [][]string{
		{"1", "Backend developer"},
		{"22", strings.Repeat("x", 100)},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID  "))
	assert.Contains(t, lines[1], "Backend developer")
	assert.True(t, strings.HasSuffix(lines[2], "..."))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "a b", Clip("a\n  b", 10))
	assert.Equal(t, "가나...", Clip("가나다라마바", 5))
}

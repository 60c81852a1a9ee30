package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerprep/internal/domain"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		field     string
		wantData  bool
		wantToken string // empty means nil token
		wantErr   bool
	}{
		{name: "token with space", line: `data: {"token":"Hel"}`, field: "token", wantData: true, wantToken: "Hel"},
		{name: "token without space", line: `data:{"token":"lo"}`, field: "token", wantData: true, wantToken: "lo"},
		{name: "crlf", line: "data: {\"token\":\"x\"}\r", field: "token", wantData: true, wantToken: "x"},
		{name: "nested field", line: `data: {"choices":[{"delta":{"content":"hi"}}]}`, field: "choices.0.delta.content", wantData: true, wantToken: "hi"},
		{name: "alt field", line: `data: {"content":"step"}`, field: "content", wantData: true, wantToken: "step"},
		{name: "missing field", line: `data: {"other":"x"}`, field: "token", wantData: true},
		{name: "empty token", line: `data: {"token":""}`, field: "token", wantData: true},
		{name: "number token", line: `data: {"token":42}`, field: "token", wantData: true, wantToken: "42"},
		{name: "float token", line: `data: {"token":1.5}`, field: "token", wantData: true, wantToken: "1.5"},
		{name: "true token", line: `data: {"token":true}`, field: "token", wantData: true, wantToken: "true"},
		{name: "zero token", line: `data: {"token":0}`, field: "token", wantData: true},
		{name: "false token", line: `data: {"token":false}`, field: "token", wantData: true},
		{name: "null token", line: `data: {"token":null}`, field: "token", wantData: true},
		{name: "object token", line: `data: {"token":{"a":1}}`, field: "token", wantData: true},
		{name: "done sentinel", line: `data: [DONE]`, field: "token", wantData: true},
		{name: "invalid json", line: `data: {"token":`, field: "token", wantData: true, wantErr: true},
		{name: "event line", line: `event: message`, field: "token"},
		{name: "comment", line: `: keepalive`, field: "token"},
		{name: "blank", line: ``, field: "token"},
		{name: "prefix not at start", line: ` data: {"token":"x"}`, field: "token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, isData, err := parseLine([]byte(tt.line), tt.field)
			assert.Equal(t, tt.wantData, isData)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrFrameDecode)
				return
			}
			require.NoError(t, err)
			if tt.wantToken == "" {
				assert.Nil(t, frame.Token)
				return
			}
			require.NotNil(t, frame.Token)
			assert.Equal(t, tt.wantToken, *frame.Token)
			assert.NotEmpty(t, frame.Parsed)
		})
	}
}

func TestParseLineKeepsRawPayload(t *testing.T) {
	frame, isData, err := parseLine([]byte(`data: {"token":"안녕"}`), "token")
	require.NoError(t, err)
	assert.True(t, isData)
	assert.Equal(t, `{"token":"안녕"}`, frame.Raw)
	require.NotNil(t, frame.Token)
	assert.Equal(t, "안녕", *frame.Token)
}

func TestSplitLines(t *testing.T) {
	lines, rest := splitLines([]byte("a\nb\npart"))
	require.Len(t, lines, 2)
	assert.Equal(t, "a", string(lines[0]))
	assert.Equal(t, "b", string(lines[1]))
	assert.Equal(t, "part", string(rest))

	lines, rest = splitLines([]byte("no newline"))
	assert.Empty(t, lines)
	assert.Equal(t, "no newline", string(rest))

	lines, rest = splitLines([]byte("x\n\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "x", string(lines[0]))
	assert.Empty(t, lines[1])
	assert.Empty(t, rest)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

package sse

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"careerprep/internal/domain"
)

var (
	dataMarker   = []byte("data:")
	doneSentinel = []byte("[DONE]")
)

// maxLoggedFrame caps how much of a malformed frame ends up in logs.
const maxLoggedFrame = 120

// parseLine decodes one complete SSE line.
// isData is false for lines that are not `data:` lines (event:, id:, comments,
// blank separators); those are ignored by the caller. A data line whose payload
// is not valid JSON returns an error wrapping domain.ErrFrameDecode.
func parseLine(line []byte, tokenField string) (frame domain.EventFrame, isData bool, err error) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, dataMarker) {
		return domain.EventFrame{}, false, nil
	}
	payload := line[len(dataMarker):]
	// The field value starts after a single optional space.
	payload = bytes.TrimPrefix(payload, []byte(" "))
	frame.Raw = string(payload)

	// Some endpoints close with an explicit sentinel; end of body is what
	// terminates the stream, so the sentinel itself carries nothing.
	if bytes.Equal(payload, doneSentinel) {
		return frame, true, nil
	}

	if !gjson.ValidBytes(payload) {
		return frame, true, fmt.Errorf("%w: %q", domain.ErrFrameDecode, truncate(frame.Raw, maxLoggedFrame))
	}
	frame.Parsed = json.RawMessage(frame.Raw)

	if tok, ok := tokenText(gjson.GetBytes(payload, tokenField)); ok {
		frame.Token = &tok
	}
	return frame, true, nil
}

// tokenText renders a token value as text. Empty strings, zero, false, null
// and containers carry no token.
func tokenText(res gjson.Result) (string, bool) {
	switch res.Type {
	case gjson.String:
		return res.Str, res.Str != ""
	case gjson.Number:
		return res.String(), res.Num != 0
	case gjson.True:
		return "true", true
	default:
		return "", false
	}
}

// splitLines returns the complete lines in buf and the trailing partial line.
// The partial line is copied so buf's backing array can be reused.
func splitLines(buf []byte) (lines [][]byte, rest []byte) {
	last := bytes.LastIndexByte(buf, '\n')
	if last < 0 {
		return nil, buf
	}
	lines = bytes.Split(buf[:last], []byte("\n"))
	rest = append([]byte(nil), buf[last+1:]...)
	return lines, rest
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

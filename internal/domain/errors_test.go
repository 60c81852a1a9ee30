package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Roadmap.Get", ErrNotFound, "roadmap 'r-1'")
	want := "Roadmap.Get: roadmap 'r-1': not found"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Auth.Token", ErrNotAuthenticated, "")
	want := "Auth.Token: not logged in"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Stream.Read", ErrStreamRead, "connection reset")
	if !errors.Is(err, ErrStreamRead) {
		t.Error("errors.Is should match ErrStreamRead")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewDomainError("Account.Profile", ErrUnauthorized, ""))
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "Account.Profile" {
		t.Errorf("Op = %q, want %q", de.Op, "Account.Profile")
	}
}

func TestWrapOpNil(t *testing.T) {
	assert.NoError(t, WrapOp("op", nil))
	assert.ErrorIs(t, WrapOp("op", ErrServer), ErrServer)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(fmt.Errorf("x: %w", ErrRateLimit)))
	assert.True(t, IsRetryableError(ErrStreamRead))
	assert.True(t, IsRetryableError(ErrCircuitOpen))
	assert.False(t, IsRetryableError(ErrUnauthorized))
	assert.False(t, IsRetryableError(ErrFrameDecode))
}

// --- ErrorCode tests ---

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeStreamRead, ErrorCodeOf(ErrStreamRead))
	assert.Equal(t, CodeFrameDecode, ErrorCodeOf(ErrFrameDecode))
	assert.Equal(t, CodeRateLimit, ErrorCodeOf(ErrRateLimit))
	assert.Equal(t, CodeUnauthorized, ErrorCodeOf(ErrUnauthorized))
}

func TestErrorCodeOf_DomainError(t *testing.T) {
	err := NewDomainError("Roadmap.Get", ErrNotFound, "r-1")
	assert.Equal(t, CodeNotFound, ErrorCodeOf(err))
	assert.Equal(t, CodeNotFound, err.Code())
}

func TestErrorCodeOf_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrCircuitOpen)
	assert.Equal(t, CodeCircuitOpen, ErrorCodeOf(wrapped))
}

func TestErrorCodeOf_UnknownError(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(fmt.Errorf("some random error")))
}

func TestErrorCodeOf_Nil(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
}

func TestErrorCodeMapComplete(t *testing.T) {
	for sentinel, code := range errorCodeMap {
		assert.NotEqual(t, CodeUnknown, code, "sentinel %v maps to UNKNOWN", sentinel)
	}
}

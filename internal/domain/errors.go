package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the stream core.
var (
	// ErrStreamRead is the StreamReadFailure: the transport failed mid-stream.
	// Terminal for the session; reported once through Handlers.OnError.
	ErrStreamRead = fmt.Errorf("stream read failed")
	// ErrFrameDecode is the FrameDecodeFailure: one frame's payload was not valid JSON.
	// Never surfaced to the caller; the frame is dropped and consumption continues.
	ErrFrameDecode = fmt.Errorf("stream frame decode failed")
	// ErrStreamCancelled is returned when a session is cancelled or superseded
	// before its body was opened.
	ErrStreamCancelled = fmt.Errorf("stream cancelled")
)

// Sentinel errors for the API client and the surrounding layers.
var (
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrNotAuthenticated = fmt.Errorf("not logged in")
	ErrNotFound         = fmt.Errorf("not found")
	ErrRateLimit        = fmt.Errorf("rate limit exceeded")
	ErrServer           = fmt.Errorf("server error")
	ErrCircuitOpen      = fmt.Errorf("backend circuit open")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
	ErrStore            = fmt.Errorf("local store operation failed")
	ErrDecryption       = fmt.Errorf("decryption failed")
	ErrEncryption       = fmt.Errorf("encryption operation failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Roadmap.Get")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
// The stream core never retries; callers use this to decide whether to offer a retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrStreamRead)
}

// ErrorCode is a machine-parseable error category for logs and exit codes.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeStreamRead       ErrorCode = "STREAM_READ"
	CodeFrameDecode      ErrorCode = "FRAME_DECODE"
	CodeStreamCancelled  ErrorCode = "STREAM_CANCELLED"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeServer           ErrorCode = "SERVER"
	CodeCircuitOpen      ErrorCode = "CIRCUIT_OPEN"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeStore            ErrorCode = "STORE"
	CodeDecryption       ErrorCode = "DECRYPTION"
	CodeEncryption       ErrorCode = "ENCRYPTION"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrStreamRead:       CodeStreamRead,
	ErrFrameDecode:      CodeFrameDecode,
	ErrStreamCancelled:  CodeStreamCancelled,
	ErrUnauthorized:     CodeUnauthorized,
	ErrNotAuthenticated: CodeNotAuthenticated,
	ErrNotFound:         CodeNotFound,
	ErrRateLimit:        CodeRateLimit,
	ErrServer:           CodeServer,
	ErrCircuitOpen:      CodeCircuitOpen,
	ErrInvalidInput:     CodeInvalidInput,
	ErrConfigLoad:       CodeConfigLoad,
	ErrStore:            CodeStore,
	ErrDecryption:       CodeDecryption,
	ErrEncryption:       CodeEncryption,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}

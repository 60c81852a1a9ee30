package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAPI(cfg, ve)
	validateStreams(cfg, ve)
	validateStore(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAPI(cfg *Config, ve *ValidationError) {
	api := cfg.API
	if api.BaseURL == "" {
		ve.Add("api.base_url must not be empty")
	} else if u, err := url.Parse(api.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("api.base_url %q must be an absolute http(s) URL", api.BaseURL)
	}
	if api.ConnTimeout < 0 {
		ve.Add("api.conn_timeout must be >= 0")
	}
	if api.RespTimeout < 0 {
		ve.Add("api.resp_timeout must be >= 0")
	}
	if api.CircuitBreaker.Enabled && api.CircuitBreaker.MaxFailures == 0 {
		ve.Add("api.circuit_breaker.max_failures must be > 0 when the breaker is enabled")
	}
	if api.RateLimit.RequestsPerSecond < 0 {
		ve.Add("api.rate_limit.requests_per_second must be >= 0")
	}
	if api.RateLimit.RequestsPerSecond > 0 && api.RateLimit.Burst <= 0 {
		ve.Add("api.rate_limit.burst must be > 0 when rate limiting is enabled")
	}
}

var validTokenModes = map[string]bool{
	"":        true,
	"append":  true,
	"replace": true,
}

func validateStreams(cfg *Config, ve *ValidationError) {
	if cfg.Streams.ReadSize <= 0 {
		ve.Add("streams.read_size must be > 0")
	}
	kinds := []struct {
		name string
		sc   StreamConfig
	}{
		{"assistant", cfg.Streams.Assistant},
		{"step_guide", cfg.Streams.StepGuide},
		{"interview", cfg.Streams.Interview},
	}
	for _, k := range kinds {
		if k.sc.TokenField == "" {
			ve.Add("streams.%s.token_field must not be empty", k.name)
		}
		if !validTokenModes[k.sc.Mode] {
			ve.Add("streams.%s.mode %q is invalid (want: append, replace)", k.name, k.sc.Mode)
		}
	}
}

func validateStore(cfg *Config, ve *ValidationError) {
	if cfg.Store.Path == "" {
		ve.Add("store.path must not be empty")
	}
	if cfg.Store.HistoryLimit <= 0 {
		ve.Add("store.history_limit must be > 0")
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[cfg.Logger.Level] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	if !validLogFormats[cfg.Logger.Format] {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}

var validExporters = map[string]bool{
	"":       true,
	"noop":   true,
	"stdout": true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
}

// Package bridgeerrors defines the error taxonomy propagated between the
// channel resolver, upstream adapters, stream parser and forwarder. Each
// kind is its own struct (rather than a sentinel) so callers can recover
// structured detail with errors.As, following the provider-error pattern
// used throughout this codebase's upstream layer.
package bridgeerrors

import (
	"errors"
	"fmt"
)

// ConfigError is a startup or per-request channel/upstream resolution
// failure. At request time it surfaces as HTTP 400; at startup it is fatal.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// IsConfigError reports whether err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// UpstreamHTTPError is a non-2xx response from the configured upstream.
type UpstreamHTTPError struct {
	Status      int
	BodySnippet string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Status, e.BodySnippet)
}

// IsUpstreamHTTPError reports whether err is (or wraps) an *UpstreamHTTPError.
func IsUpstreamHTTPError(err error) bool {
	var e *UpstreamHTTPError
	return errors.As(err, &e)
}

// UpstreamReadError is a socket/read failure mid-stream. The connection is
// considered half-dead; callers must not retry on it.
type UpstreamReadError struct {
	Cause error
}

func (e *UpstreamReadError) Error() string {
	return fmt.Sprintf("upstream read failed: %v", e.Cause)
}

func (e *UpstreamReadError) Unwrap() error { return e.Cause }

// IsUpstreamReadError reports whether err is (or wraps) an *UpstreamReadError.
func IsUpstreamReadError(err error) bool {
	var e *UpstreamReadError
	return errors.As(err, &e)
}

// ParseError is a malformed SSE line from the upstream. Non-fatal: the line
// is logged and dropped, the stream continues.
type ParseError struct {
	Line  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed SSE line %q: %v", e.Line, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ToolCallMalformed marks a ToolCallFailed parser event promoted to an
// error for logging. Handled by the retry controller, never surfaced raw.
type ToolCallMalformed struct {
	Content string
}

func (e *ToolCallMalformed) Error() string {
	return "malformed tool call in upstream output"
}

// Timeout is raised when the upstream does not respond within the
// configured per-request deadline.
type Timeout struct {
	AfterMS int
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("upstream did not respond within %dms", e.AfterMS)
}

// IsTimeout reports whether err is (or wraps) a *Timeout.
func IsTimeout(err error) bool {
	var e *Timeout
	return errors.As(err, &e)
}

// Package bsrerrors defines the recorder core's error taxonomy.
//
// Every failure that crosses a component boundary (platform client, segment
// fetcher, danmaku provider, recorder) is tagged with a Kind so that callers
// can decide whether to retry, refresh a StreamHandle, or surface a fatal
// RecordEnd without string-matching error messages.
package bsrerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for recovery-policy purposes.
type Kind string

const (
	// KindNetwork is a transient socket/HTTP/DNS failure.
	KindNetwork Kind = "network"
	// KindAuth indicates credentials were rejected, missing, or expired.
	KindAuth Kind = "auth"
	// KindRateLimited indicates the upstream asked the client to slow down.
	KindRateLimited Kind = "rate_limited"
	// KindNotLive indicates discovery succeeded but the room is offline.
	KindNotLive Kind = "not_live"
	// KindNotFound indicates the room or account does not exist.
	KindNotFound Kind = "not_found"
	// KindFormatNotFound indicates no acceptable container format was found.
	KindFormatNotFound Kind = "format_not_found"
	// KindCodecNotFound indicates no acceptable codec was found.
	KindCodecNotFound Kind = "codec_not_found"
	// KindStreamExpired indicates a signed URL is past its expiry.
	KindStreamExpired Kind = "stream_expired"
	// KindHeartbeatTimeout indicates a danmaku session died from missed heartbeats.
	KindHeartbeatTimeout Kind = "heartbeat_timeout"
	// KindIO is a local filesystem error, fatal for the owning session.
	KindIO Kind = "io"
	// KindProtocol indicates a malformed upstream payload; recover by skipping.
	KindProtocol Kind = "protocol"
	// KindCancelled indicates cooperative cancellation; never surfaced to users.
	KindCancelled Kind = "cancelled"
)

// Error is a tagged error carrying a Kind and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a tagged error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags an existing error with a Kind, preserving it as the cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind carried by err, or "" if err is not a tagged Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRecoverable reports whether err should be recovered locally (retried,
// skipped, or refreshed) rather than surfaced as a fatal RecordEnd.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindProtocol, KindRateLimited, KindStreamExpired, KindHeartbeatTimeout:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err is fatal for the owning Recorder instance
// (Auth, NotFound, IO) and must be surfaced as RecordEnd{reason}.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindAuth, KindNotFound, KindIO:
		return true
	default:
		return false
	}
}

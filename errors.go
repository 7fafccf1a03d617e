package ftsearch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration signals an invalid field, filter, query or search input.
	ErrConfiguration = errors.New("ftsearch: configuration error")
	// ErrRemoteCommand signals an error reply from the search module.
	ErrRemoteCommand = errors.New("ftsearch: remote command error")
	// ErrMalformedReply signals a reply whose shape does not match the request.
	ErrMalformedReply = errors.New("ftsearch: malformed reply")
)

// ConfigurationError is returned before any I/O when inputs cannot be turned into a
// valid command.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return ErrConfiguration.Error() + ": " + e.Reason }
func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// RemoteCommandError carries a server error reply. Message is the server text, unmodified.
type RemoteCommandError struct {
	Command string
	Message string
}

func (e *RemoteCommandError) Error() string { return e.Command + ": " + e.Message }
func (e *RemoteCommandError) Unwrap() error { return ErrRemoteCommand }

// MalformedReplyError describes where decoding a reply went wrong.
type MalformedReplyError struct {
	Reason string
}

func (e *MalformedReplyError) Error() string { return ErrMalformedReply.Error() + ": " + e.Reason }
func (e *MalformedReplyError) Unwrap() error { return ErrMalformedReply }

func malformedf(format string, args ...any) error {
	return &MalformedReplyError{Reason: fmt.Sprintf(format, args...)}
}

// IsUnknownIndex reports whether err is a server reply saying the index does not exist.
func IsUnknownIndex(err error) bool {
	var rce *RemoteCommandError
	if !errors.As(err, &rce) {
		return false
	}
	m := strings.ToLower(rce.Message)
	return strings.Contains(m, "unknown index") || strings.Contains(m, "no such index")
}

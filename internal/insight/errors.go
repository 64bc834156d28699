package insight

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialMissing means no API key was available at call time.
	ErrCredentialMissing = errors.New("remote credential missing")

	// ErrTransport covers network failures and per-attempt timeouts.
	ErrTransport = errors.New("remote transport error")

	// ErrNonSuccessStatus means the endpoint answered with a non-2xx status.
	ErrNonSuccessStatus = errors.New("remote returned non-success status")

	// ErrMalformedResponse means the body did not parse or lacked content.
	ErrMalformedResponse = errors.New("remote response malformed")
)

// RemoteError is a non-2xx answer from the chat-completion endpoint.
// It matches ErrNonSuccessStatus under errors.Is.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("remote error (%d): %s", e.StatusCode, e.Message)
}

// Is reports whether target is ErrNonSuccessStatus.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNonSuccessStatus
}

// Retryable reports whether the status is worth another attempt.
func (e *RemoteError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// retryableError marks a failure as transient.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// Reason maps a generation failure to a short label for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCredentialMissing):
		return "credential_missing"
	case errors.Is(err, ErrNonSuccessStatus):
		return "status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "transport"
	}
}

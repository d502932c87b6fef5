package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited means the provider rejected the call for quota reasons.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrAuth means the credentials were missing, wrong, or lack permission.
	ErrAuth = errors.New("llm: authentication failed")
	// ErrTimeout means the call did not finish before its deadline.
	ErrTimeout = errors.New("llm: timeout")
	// ErrProviderUnavailable covers server errors and transport failures.
	ErrProviderUnavailable = errors.New("llm: provider unavailable")
)

// ProviderError describes a failed call to a reasoning backend. Kind is one
// of the sentinel errors above and is matched by errors.Is.
type ProviderError struct {
	Kind       error
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error's Kind.
func (e *ProviderError) Is(target error) bool {
	return target == e.Kind
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StatusError classifies a non-success HTTP status returned by provider.
// A status that maps to nothing more specific becomes ErrProviderUnavailable.
func StatusError(provider string, status int, message string) error {
	var kind error
	switch {
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrAuth
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = ErrTimeout
	default:
		kind = ErrProviderUnavailable
	}
	return &ProviderError{Kind: kind, Provider: provider, StatusCode: status, Message: message}
}

// TransportError classifies a failure that happened before a response was
// received. Deadline expiry maps to ErrTimeout; plain cancellation is
// returned unchanged so callers can tell an abort from a provider fault.
func TransportError(ctx context.Context, provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ProviderError{Kind: ErrTimeout, Provider: provider, Err: err}
	}
	return &ProviderError{Kind: ErrProviderUnavailable, Provider: provider, Err: err}
}

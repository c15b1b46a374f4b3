package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrBadRequest  = errors.New("bad request")
	ErrNotModified = errors.New("not modified")
	ErrProvider    = errors.New("provider error")
)

// ProviderError is returned when an outbound call to the verification provider
// fails with a non-2xx status or a transport error (Status 0).
type ProviderError struct {
	Op      string
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: provider returned %d: %s", e.Op, e.Status, e.Message)
}

// Unwrap lets errors.Is match ErrProvider, and ErrNotFound when the provider
// reports an unknown subscriber.
func (e *ProviderError) Unwrap() []error {
	if IsUnknownSubscriber(e.Message) {
		return []error{ErrProvider, ErrNotFound}
	}
	return []error{ErrProvider}
}

// IsUnknownSubscriber reports whether a provider error text says the identifier
// has no account with the provider.
func IsUnknownSubscriber(msg string) bool {
	m := strings.ToLower(msg)
	for _, s := range []string{"not found", "no account", "unknown subscriber", "not a subscriber"} {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

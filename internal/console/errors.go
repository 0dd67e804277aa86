package console

import (
	"errors"
	"fmt"
)

// ErrProfileNotFound is returned for any profile that cannot yield
// credentials, without revealing which source was missing.
var ErrProfileNotFound = errors.New("profile not found")

// FederationError wraps a failure of the provider's federation
// endpoint or the SSO credential API. It is surfaced to the caller
// and never retried at this layer.
type FederationError struct {
	Op  string
	Err error
}

func (e *FederationError) Error() string {
	return fmt.Sprintf("federation %s failed: %v", e.Op, e.Err)
}

func (e *FederationError) Unwrap() error { return e.Err }

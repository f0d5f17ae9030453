package toornament

import (
	"errors"
	"fmt"
)

// CredentialError means a new token could not be obtained.
// No authenticated request can be served until it is resolved
type CredentialError struct {
	// StatusCode of the token endpoint, 0 if it never answered
	StatusCode int
	Err        error
}

func (e *CredentialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("could not refresh toornament token (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("could not refresh toornament token: %v", e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// AsCredentialError extracts a credential error from the chain, if any
func AsCredentialError(err error) (*CredentialError, bool) {
	var credentialErr *CredentialError
	if errors.As(err, &credentialErr) {
		return credentialErr, true
	}
	return nil, false
}

package auth

import (
	"errors"
	"fmt"
)

// ErrInvalidCredential is the single error surfaced for any credential
// validation failure. The precise cause is carried internally as a Reason
// for diagnostic logging and must never reach a caller, so responses give
// no oracle for "not found" vs "bad secret" vs "expired".
var ErrInvalidCredential = errors.New("auth: invalid credential")

// ErrNotFound is returned by identity store lookups for absent records.
var ErrNotFound = errors.New("auth: not found")

// Reason tags why a credential failed validation.
type Reason string

const (
	ReasonInvalidFormat    Reason = "invalid_format"
	ReasonNotFound         Reason = "credential_not_found"
	ReasonExpired          Reason = "credential_expired"
	ReasonRevoked          Reason = "credential_revoked"
	ReasonSignature        Reason = "signature_mismatch"
	ReasonSecretMismatch   Reason = "secret_mismatch"
	ReasonIdentityMissing  Reason = "identity_record_missing"
	ReasonStoreUnavailable Reason = "identity_store_unavailable"
)

// credentialError is the tagged result for a failed validation. It unwraps
// to ErrInvalidCredential so callers branch on one sentinel while logs keep
// the reason.
type credentialError struct {
	reason Reason
	err    error
}

func (e *credentialError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("auth: invalid credential (%s): %v", e.reason, e.err)
	}
	return fmt.Sprintf("auth: invalid credential (%s)", e.reason)
}

func (e *credentialError) Unwrap() error {
	return ErrInvalidCredential
}

func invalidCredential(reason Reason, err error) error {
	return &credentialError{reason: reason, err: err}
}

// ReasonOf extracts the diagnostic reason from a validation error.
func ReasonOf(err error) Reason {
	var ce *credentialError
	if errors.As(err, &ce) {
		return ce.reason
	}
	return ""
}

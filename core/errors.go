package core

import "errors"

var (
	// ErrIdentityNotFound is returned when no identity exists for an address
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidSignature is returned when a signature does not recover to the claimed address
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrMissingNonce is returned when a persisted identity carries a blank nonce
	ErrMissingNonce = errors.New("identity nonce is blank")

	// ErrStoreOperationFailed is returned when a store operation fails
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// VerificationKind classifies why a signature was denied. The classification
// is logged for observability only; callers expose a generic deny so that
// responses never act as an oracle on signature validity.
type VerificationKind string

const (
	VerificationMalformedSignature VerificationKind = "malformed_signature"
	VerificationRecoveryFailed     VerificationKind = "recovery_failed"
	VerificationAddressMismatch    VerificationKind = "address_mismatch"
	VerificationPolicyRejected     VerificationKind = "policy_rejected"
)

// VerificationError carries the internal denial classification for a failed
// signature verification.
type VerificationError struct {
	Kind VerificationKind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

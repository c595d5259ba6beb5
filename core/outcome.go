package core

// Outcome is the tri-state result of an authentication attempt.
type Outcome int

const (
	// OutcomeNotApplicable means the request did not carry wallet
	// credentials; other authentication strategies may still apply.
	OutcomeNotApplicable Outcome = iota

	// OutcomeAuthenticated means the signature verified and an identity
	// was resolved.
	OutcomeAuthenticated

	// OutcomeFailed means the request carried wallet credentials but was
	// denied.
	OutcomeFailed
)

// FailureReason is the externally visible denial reason.
type FailureReason string

const (
	// ReasonInvalidSignature covers cryptographic denial and message-policy
	// rejection; the two are indistinguishable to the caller.
	ReasonInvalidSignature FailureReason = "invalid_signature"

	// ReasonInvalid covers identity resolution and persistence failures.
	ReasonInvalid FailureReason = "invalid"
)

// Result is the outcome of one authentication attempt. Identity is set only
// when Outcome is OutcomeAuthenticated; Reason only when OutcomeFailed.
type Result struct {
	Outcome  Outcome
	Reason   FailureReason
	Identity *Identity
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/eth"
	"github.com/layer-3/walletauth/ports"
)

// Credentials are the three raw fields extracted from a login request.
type Credentials struct {
	Address   string
	Message   string
	Signature string
}

// AuthService sequences wallet authentication: message normalization,
// signature recovery and matching, message policy, identity resolution and
// nonce rotation. It holds no state across calls.
type AuthService struct {
	provider ports.IdentityProvider
	eventPub ports.EventPublisher
	policy   core.Policy
	logger   watermill.LoggerAdapter
}

// NewAuthService creates a new authentication service. eventPub may be nil
// when no event transport is wired.
func NewAuthService(provider ports.IdentityProvider, eventPub ports.EventPublisher, cfg Config, logger watermill.LoggerAdapter) *AuthService {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &AuthService{
		provider: provider,
		eventPub: eventPub,
		policy:   core.Policy{AllowedNetworks: cfg.AllowedNetworks},
		logger:   logger,
	}
}

// Authenticate runs the full wallet authentication flow for one request.
//
// Missing credentials defer to other strategies (OutcomeNotApplicable).
// A signature that does not recover to the claimed address, malformed crypto
// input, and message-policy rejection all produce the same externally visible
// invalid_signature deny; the internal classification is logged but never
// returned. Resolution or persistence failure yields the generic invalid
// reason.
func (s *AuthService) Authenticate(ctx context.Context, creds Credentials) core.Result {
	if creds.Address == "" || creds.Message == "" || creds.Signature == "" {
		return core.Result{Outcome: core.OutcomeNotApplicable}
	}

	canonical := core.NormalizeMessage(creds.Message)
	address := core.NormalizeAddress(creds.Address)

	if verr := s.verifySignature(canonical, creds.Signature, address); verr != nil {
		s.logDenied(address, verr)
		return core.Result{Outcome: core.OutcomeFailed, Reason: core.ReasonInvalidSignature}
	}

	if !s.policy.Accept(canonical) {
		// Folded into the same externally visible deny as a bad signature.
		s.logDenied(address, &core.VerificationError{Kind: core.VerificationPolicyRejected})
		return core.Result{Outcome: core.OutcomeFailed, Reason: core.ReasonInvalidSignature}
	}

	identity, err := s.resolve(ctx, address, canonical)
	if err != nil {
		s.logger.Error("identity resolution failed", err, watermill.LogFields{"address": address})
		return core.Result{Outcome: core.OutcomeFailed, Reason: core.ReasonInvalid}
	}
	if identity.Nonce == "" {
		s.logger.Error("identity resolution failed", core.ErrMissingNonce, watermill.LogFields{"address": address})
		return core.Result{Outcome: core.OutcomeFailed, Reason: core.ReasonInvalid}
	}

	if err := s.provider.RotateNonce(ctx, identity); err != nil {
		s.logger.Error("nonce rotation failed", err, watermill.LogFields{"address": address})
		return core.Result{Outcome: core.OutcomeFailed, Reason: core.ReasonInvalid}
	}

	if s.eventPub != nil {
		// Event delivery must not fail an already-successful authentication.
		if err := s.eventPub.PublishLogin(ctx, address); err != nil {
			s.logger.Error("failed to publish login event", err, watermill.LogFields{"address": address})
		}
	}

	return core.Result{Outcome: core.OutcomeAuthenticated, Identity: identity}
}

// Nonce returns the current nonce for a known address, so clients can embed
// it in the message they sign. Unknown addresses are not provisioned here.
func (s *AuthService) Nonce(ctx context.Context, address string) (string, error) {
	identity, err := s.provider.FindByAddress(ctx, core.NormalizeAddress(address))
	if err != nil {
		return "", err
	}
	if identity.Nonce == "" {
		return "", core.ErrMissingNonce
	}
	return identity.Nonce, nil
}

// verifySignature recovers the signer of the canonical message and matches it
// against the normalized claimed address. Pure; all faults come back as
// classified verification errors, never panics.
func (s *AuthService) verifySignature(canonical, signature, address string) *core.VerificationError {
	sig, err := eth.DecodeSignature(signature)
	if err != nil {
		return &core.VerificationError{Kind: core.VerificationMalformedSignature, Err: err}
	}

	recovered, err := eth.RecoverAddress([]byte(canonical), sig)
	if err != nil {
		return &core.VerificationError{Kind: core.VerificationRecoveryFailed, Err: err}
	}

	if core.NormalizeAddress(recovered.Hex()) != address {
		return &core.VerificationError{Kind: core.VerificationAddressMismatch, Err: core.ErrInvalidSignature}
	}
	return nil
}

// resolve finds the identity for an address, provisioning one on first sight.
func (s *AuthService) resolve(ctx context.Context, address, canonical string) (*core.Identity, error) {
	identity, err := s.provider.FindByAddress(ctx, address)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, core.ErrIdentityNotFound) {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	identity, err = s.provider.Provision(ctx, address, canonical)
	if err != nil {
		return nil, fmt.Errorf("provision identity: %w", err)
	}
	return identity, nil
}

func (s *AuthService) logDenied(address string, verr *core.VerificationError) {
	s.logger.Info("authentication denied", watermill.LogFields{
		"address":        address,
		"classification": string(verr.Kind),
	})
}

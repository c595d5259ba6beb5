package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// IdentityProvider is the persistence capability behind identity resolution.
// Implementations must serialize concurrent access per address: Provision is
// an atomic create-or-fetch keyed on the unique normalized address, and
// RotateNonce replaces the stored nonce atomically.
type IdentityProvider interface {
	// FindByAddress returns the identity for a normalized address, or
	// core.ErrIdentityNotFound.
	FindByAddress(ctx context.Context, address string) (*core.Identity, error)

	// Provision creates an identity for a previously-unseen address with a
	// fresh nonce. If another request created the identity concurrently, the
	// stored identity is returned instead of a duplicate-key failure. The
	// canonical message is passed through for implementations that derive
	// provisioning data from it.
	Provision(ctx context.Context, address, message string) (*core.Identity, error)

	// RotateNonce assigns a new nonce to the identity and persists it,
	// updating identity.Nonce in place on success.
	RotateNonce(ctx context.Context, identity *core.Identity) error
}

// ProvisionDefaults populates placeholder fields on a freshly provisioned
// identity to satisfy constraints imposed by the surrounding identity record.
// Implementations must not touch Address or Nonce.
type ProvisionDefaults func(identity *core.Identity)

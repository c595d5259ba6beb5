package store

import (
	"github.com/google/uuid"

	"github.com/layer-3/walletauth/core"
)

// PlaceholderDefaults populates the ecosystem-required placeholder fields of
// a freshly provisioned identity: a synthesized contact address and a random
// secret. These exist only to satisfy identity-record constraints imposed by
// surrounding user schemas; applications with real provisioning data supply
// their own ports.ProvisionDefaults.
func PlaceholderDefaults(identity *core.Identity) {
	identity.Email = identity.Address + "@wallet.invalid"
	identity.Secret = uuid.New().String()
}

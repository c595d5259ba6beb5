package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// MemoryStore is an in-memory implementation of the IdentityProvider
// interface, intended for tests and single-instance deployments.
type MemoryStore struct {
	identities map[string]*core.Identity
	defaults   ports.ProvisionDefaults
	mu         sync.RWMutex
}

// NewMemoryStore creates a new in-memory store. defaults may be nil.
func NewMemoryStore(defaults ports.ProvisionDefaults) *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]*core.Identity),
		defaults:   defaults,
	}
}

// FindByAddress returns the identity stored for an address.
func (s *MemoryStore) FindByAddress(ctx context.Context, address string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[address]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}
	clone := *identity
	return &clone, nil
}

// Provision creates an identity for a previously-unseen address. The create
// is atomic under the store lock: a concurrent attempt for the same address
// observes the already-created identity.
func (s *MemoryStore) Provision(ctx context.Context, address, message string) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.identities[address]; ok {
		clone := *existing
		return &clone, nil
	}

	identity := &core.Identity{
		Address:   address,
		CreatedAt: time.Now(),
	}
	if s.defaults != nil {
		s.defaults(identity)
	}
	// Nonce is assigned last so defaults cannot leave it blank.
	identity.Nonce = uuid.New().String()

	s.identities[address] = identity
	clone := *identity
	return &clone, nil
}

// RotateNonce assigns a new nonce to the stored identity.
func (s *MemoryStore) RotateNonce(ctx context.Context, identity *core.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.identities[identity.Address]
	if !ok {
		return core.ErrIdentityNotFound
	}

	nonce := uuid.New().String()
	stored.Nonce = nonce
	identity.Nonce = nonce
	return nil
}

// Clear removes all identities. Useful for resetting state between tests.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identities = make(map[string]*core.Identity)
}

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/core"
)

const testAddress = "8ba1f109551bd432803012645ac136ddd64dba72"

func TestMemoryStoreFindByAddress(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	_, err := s.FindByAddress(ctx, testAddress)
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)

	created, err := s.Provision(ctx, testAddress, "msg")
	require.NoError(t, err)

	found, err := s.FindByAddress(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, created.Address, found.Address)
	assert.Equal(t, created.Nonce, found.Nonce)
}

func TestMemoryStoreProvisionAssignsNonce(t *testing.T) {
	s := NewMemoryStore(PlaceholderDefaults)

	identity, err := s.Provision(context.Background(), testAddress, "msg")
	require.NoError(t, err)
	assert.Equal(t, testAddress, identity.Address)
	assert.NotEmpty(t, identity.Nonce)
	assert.Equal(t, testAddress+"@wallet.invalid", identity.Email)
	assert.NotEmpty(t, identity.Secret)
}

func TestMemoryStoreProvisionIdempotent(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	first, err := s.Provision(ctx, testAddress, "msg")
	require.NoError(t, err)

	second, err := s.Provision(ctx, testAddress, "msg")
	require.NoError(t, err)
	assert.Equal(t, first.Nonce, second.Nonce)
}

func TestMemoryStoreProvisionConcurrent(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	nonces := make([]string, 32)
	for i := range nonces {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity, err := s.Provision(ctx, testAddress, "msg")
			if assert.NoError(t, err) {
				nonces[i] = identity.Nonce
			}
		}(i)
	}
	wg.Wait()

	// Exactly one identity was created; every caller observed its nonce.
	for _, nonce := range nonces {
		assert.Equal(t, nonces[0], nonce)
	}
}

func TestMemoryStoreRotateNonce(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	identity, err := s.Provision(ctx, testAddress, "msg")
	require.NoError(t, err)
	before := identity.Nonce

	require.NoError(t, s.RotateNonce(ctx, identity))
	assert.NotEqual(t, before, identity.Nonce)

	stored, err := s.FindByAddress(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, identity.Nonce, stored.Nonce)
}

func TestMemoryStoreRotateNonceUnknownAddress(t *testing.T) {
	s := NewMemoryStore(nil)

	err := s.RotateNonce(context.Background(), &core.Identity{Address: testAddress})
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)
}

package service

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/eth"
)

const loginMessage = "Example App,1700000000,abc123,mainnet"

func newTestService(t *testing.T, networks ...string) (*AuthService, *store.MemoryStore) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AllowedNetworks = networks
	memStore := store.NewMemoryStore(store.PlaceholderDefaults)
	return NewAuthService(memStore, nil, cfg, nil), memStore
}

func signedCredentials(t *testing.T, key *ecdsa.PrivateKey, message string) Credentials {
	t.Helper()
	sig, err := eth.SignPersonal([]byte(message), key)
	require.NoError(t, err)
	return Credentials{
		Address:   gethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
		Message:   message,
		Signature: hexutil.Encode(sig),
	}
}

func TestAuthenticateRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	result := svc.Authenticate(context.Background(), signedCredentials(t, key, loginMessage))

	require.Equal(t, core.OutcomeAuthenticated, result.Outcome)
	require.NotNil(t, result.Identity)
	assert.Equal(t, core.NormalizeAddress(gethcrypto.PubkeyToAddress(key.PublicKey).Hex()), result.Identity.Address)
	assert.NotEmpty(t, result.Identity.Nonce)
}

func TestAuthenticateWrongAddress(t *testing.T) {
	svc, _ := newTestService(t)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	other, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	creds := signedCredentials(t, key, loginMessage)
	creds.Address = gethcrypto.PubkeyToAddress(other.PublicKey).Hex()

	result := svc.Authenticate(context.Background(), creds)
	assert.Equal(t, core.OutcomeFailed, result.Outcome)
	assert.Equal(t, core.ReasonInvalidSignature, result.Reason)
}

func TestAuthenticateAddressCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	creds := signedCredentials(t, key, loginMessage)

	for _, variant := range []string{
		strings.ToUpper(creds.Address),
		strings.ToLower(creds.Address),
		strings.TrimPrefix(strings.ToLower(creds.Address), "0x"),
	} {
		creds.Address = variant
		result := svc.Authenticate(context.Background(), creds)
		assert.Equal(t, core.OutcomeAuthenticated, result.Outcome, "variant %q", variant)
	}
}

func TestAuthenticateHexEncodedMessage(t *testing.T) {
	svc, _ := newTestService(t)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	// Wallet signs the plain bytes but submits them hex-encoded.
	creds := signedCredentials(t, key, loginMessage)
	creds.Message = "0x" + hex.EncodeToString([]byte(loginMessage))

	result := svc.Authenticate(context.Background(), creds)
	assert.Equal(t, core.OutcomeAuthenticated, result.Outcome)
}

func TestAuthenticateMalformedSignature(t *testing.T) {
	svc, _ := newTestService(t)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	for _, signature := range []string{
		"garbage",
		"0xdeadbeef",
		"0x" + strings.Repeat("00", 65),
	} {
		creds := signedCredentials(t, key, loginMessage)
		creds.Signature = signature

		result := svc.Authenticate(context.Background(), creds)
		assert.Equal(t, core.OutcomeFailed, result.Outcome, "signature %q", signature)
		assert.Equal(t, core.ReasonInvalidSignature, result.Reason)
	}
}

func TestAuthenticateAllowList(t *testing.T) {
	svc, _ := newTestService(t, "mainnet")
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	result := svc.Authenticate(context.Background(), signedCredentials(t, key, loginMessage))
	assert.Equal(t, core.OutcomeAuthenticated, result.Outcome)

	// Cryptographically valid signature over a disallowed network is denied
	// with the same externally visible reason.
	testnet := signedCredentials(t, key, "Example App,1700000000,abc123,testnet")
	result = svc.Authenticate(context.Background(), testnet)
	assert.Equal(t, core.OutcomeFailed, result.Outcome)
	assert.Equal(t, core.ReasonInvalidSignature, result.Reason)
}

func TestAuthenticateDeferral(t *testing.T) {
	svc, _ := newTestService(t)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	valid := signedCredentials(t, key, loginMessage)

	for name, creds := range map[string]Credentials{
		"no address":   {Message: valid.Message, Signature: valid.Signature},
		"no message":   {Address: valid.Address, Signature: valid.Signature},
		"no signature": {Address: valid.Address, Message: valid.Message},
		"nothing":      {},
	} {
		result := svc.Authenticate(context.Background(), creds)
		assert.Equal(t, core.OutcomeNotApplicable, result.Outcome, name)
	}
}

func TestAuthenticateRotatesNonce(t *testing.T) {
	svc, memStore := newTestService(t)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	creds := signedCredentials(t, key, loginMessage)
	address := core.NormalizeAddress(creds.Address)

	first := svc.Authenticate(context.Background(), creds)
	require.Equal(t, core.OutcomeAuthenticated, first.Outcome)

	stored, err := memStore.FindByAddress(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, first.Identity.Nonce, stored.Nonce)

	second := svc.Authenticate(context.Background(), creds)
	require.Equal(t, core.OutcomeAuthenticated, second.Outcome)
	assert.NotEqual(t, first.Identity.Nonce, second.Identity.Nonce)
}

func TestAuthenticateFirstSeenProvisioning(t *testing.T) {
	svc, memStore := newTestService(t)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	creds := signedCredentials(t, key, loginMessage)
	address := core.NormalizeAddress(creds.Address)

	_, err = memStore.FindByAddress(context.Background(), address)
	require.ErrorIs(t, err, core.ErrIdentityNotFound)

	result := svc.Authenticate(context.Background(), creds)
	require.Equal(t, core.OutcomeAuthenticated, result.Outcome)

	stored, err := memStore.FindByAddress(context.Background(), address)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Nonce)
	assert.NotEmpty(t, stored.Email)
	assert.NotEmpty(t, stored.Secret)
}

func TestAuthenticateConcurrentFirstSeen(t *testing.T) {
	svc, memStore := newTestService(t)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	creds := signedCredentials(t, key, loginMessage)

	var wg sync.WaitGroup
	results := make([]core.Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Authenticate(context.Background(), creds)
		}(i)
	}
	wg.Wait()

	for i, result := range results {
		assert.Equal(t, core.OutcomeAuthenticated, result.Outcome, "request %d", i)
	}

	// The unique-address invariant held: every result references the same
	// single identity.
	address := core.NormalizeAddress(creds.Address)
	for _, result := range results {
		assert.Equal(t, address, result.Identity.Address)
	}
	_, err = memStore.FindByAddress(context.Background(), address)
	assert.NoError(t, err)
}

type failingProvider struct {
	err error
}

func (p *failingProvider) FindByAddress(ctx context.Context, address string) (*core.Identity, error) {
	return nil, p.err
}

func (p *failingProvider) Provision(ctx context.Context, address, message string) (*core.Identity, error) {
	return nil, p.err
}

func (p *failingProvider) RotateNonce(ctx context.Context, identity *core.Identity) error {
	return p.err
}

func TestAuthenticateResolutionFailure(t *testing.T) {
	provider := &failingProvider{err: errors.New("connection refused")}
	svc := NewAuthService(provider, nil, DefaultConfig(), nil)
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	result := svc.Authenticate(context.Background(), signedCredentials(t, key, loginMessage))
	assert.Equal(t, core.OutcomeFailed, result.Outcome)
	assert.Equal(t, core.ReasonInvalid, result.Reason)
}

func TestNonce(t *testing.T) {
	svc, memStore := newTestService(t)

	_, err := svc.Nonce(context.Background(), "0xdeadbeef")
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)

	identity, err := memStore.Provision(context.Background(), "deadbeef", "")
	require.NoError(t, err)

	nonce, err := svc.Nonce(context.Background(), "0xDEADBEEF")
	require.NoError(t, err)
	assert.Equal(t, identity.Nonce, nonce)
}

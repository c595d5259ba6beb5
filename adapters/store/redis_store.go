package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const rotateRetries = 3

// RedisStore is a Redis implementation of the IdentityProvider interface.
// Each identity is a single JSON value keyed by its normalized address, so a
// record is either absent or complete: SET NX writes all fields in one
// command and concurrent provisioning for the same address yields a single
// identity. Readers can never observe a partially written record.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	defaults ports.ProvisionDefaults
}

// NewRedisStore creates a new Redis store. defaults may be nil.
func NewRedisStore(client *redis.Client, defaults ports.ProvisionDefaults) *RedisStore {
	return &RedisStore{
		client:   client,
		prefix:   "walletauth:identity:",
		defaults: defaults,
	}
}

type identityRecord struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Email     string    `json:"email"`
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *RedisStore) key(address string) string {
	return s.prefix + address
}

// FindByAddress retrieves an identity by its normalized address.
func (s *RedisStore) FindByAddress(ctx context.Context, address string) (*core.Identity, error) {
	raw, err := s.client.Get(ctx, s.key(address)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity %s: %w", address, err)
	}
	return s.decode(address, raw)
}

// Provision creates the identity for an address with a single SET NX write.
// When a concurrent request already created it, the stored identity is
// returned instead.
func (s *RedisStore) Provision(ctx context.Context, address, message string) (*core.Identity, error) {
	identity := &core.Identity{
		Address:   address,
		CreatedAt: time.Now(),
	}
	if s.defaults != nil {
		s.defaults(identity)
	}
	identity.Nonce = uuid.New().String()

	raw, err := json.Marshal(encode(identity))
	if err != nil {
		return nil, fmt.Errorf("provision identity %s: %w", address, err)
	}

	created, err := s.client.SetNX(ctx, s.key(address), raw, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("provision identity %s: %w", address, err)
	}
	if !created {
		// Lost the create race; the winner's record is authoritative and,
		// being a single value, always complete.
		return s.FindByAddress(ctx, address)
	}
	return identity, nil
}

// RotateNonce replaces the stored nonce in an optimistic transaction: the key
// is watched, the record re-read and rewritten, and the write retried when a
// concurrent update invalidates it.
func (s *RedisStore) RotateNonce(ctx context.Context, identity *core.Identity) error {
	key := s.key(identity.Address)
	nonce := uuid.New().String()

	rotate := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return core.ErrIdentityNotFound
		}
		if err != nil {
			return err
		}

		stored, err := s.decode(identity.Address, raw)
		if err != nil {
			return err
		}
		stored.Nonce = nonce

		updated, err := json.Marshal(encode(stored))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < rotateRetries; i++ {
		err = s.client.Watch(ctx, rotate, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if errors.Is(err, core.ErrIdentityNotFound) {
		return core.ErrIdentityNotFound
	}
	if err != nil {
		return fmt.Errorf("rotate nonce for %s: %w", identity.Address, err)
	}

	identity.Nonce = nonce
	return nil
}

func (s *RedisStore) decode(address, raw string) (*core.Identity, error) {
	var record identityRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode identity %s: %w", address, err)
	}
	return &core.Identity{
		Address:   record.Address,
		Nonce:     record.Nonce,
		Email:     record.Email,
		Secret:    record.Secret,
		CreatedAt: record.CreatedAt,
	}, nil
}

func encode(identity *core.Identity) identityRecord {
	return identityRecord{
		Address:   identity.Address,
		Nonce:     identity.Nonce,
		Email:     identity.Email,
		Secret:    identity.Secret,
		CreatedAt: identity.CreatedAt,
	}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// Columns names the identity-record columns used for address and nonce
// storage. Deployments that mount the identities table into an existing user
// schema override these.
type Columns struct {
	Address string
	Nonce   string
}

// DefaultColumns returns the conventional column names.
func DefaultColumns() Columns {
	return Columns{Address: "eth_address", Nonce: "metamask_nonce"}
}

// PostgresStore is a PostgreSQL implementation of the IdentityProvider
// interface. The address column carries a unique constraint; Provision relies
// on ON CONFLICT DO NOTHING so a create racing with another instance degrades
// to a lookup instead of a duplicate-key failure.
type PostgresStore struct {
	db       *sql.DB
	cols     Columns
	defaults ports.ProvisionDefaults
}

// NewPostgresStore creates a new Postgres store. defaults may be nil.
func NewPostgresStore(db *sql.DB, cols Columns, defaults ports.ProvisionDefaults) *PostgresStore {
	if cols.Address == "" || cols.Nonce == "" {
		cols = DefaultColumns()
	}
	return &PostgresStore{db: db, cols: cols, defaults: defaults}
}

// OpenPostgres opens and pings a PostgreSQL connection.
func OpenPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// FindByAddress retrieves an identity by its normalized address.
func (s *PostgresStore) FindByAddress(ctx context.Context, address string) (*core.Identity, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, email, secret, created_at
		FROM identities
		WHERE %s = $1
	`, s.cols.Address, s.cols.Nonce, s.cols.Address)

	var identity core.Identity
	err := s.db.QueryRowContext(ctx, query, address).Scan(
		&identity.Address,
		&identity.Nonce,
		&identity.Email,
		&identity.Secret,
		&identity.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity %s: %w", address, err)
	}
	return &identity, nil
}

// Provision inserts an identity for a previously-unseen address. When another
// request created the identity concurrently, the conflicting insert affects
// no rows and the stored identity is fetched instead.
func (s *PostgresStore) Provision(ctx context.Context, address, message string) (*core.Identity, error) {
	identity := &core.Identity{
		Address:   address,
		CreatedAt: time.Now(),
	}
	if s.defaults != nil {
		s.defaults(identity)
	}
	identity.Nonce = uuid.New().String()

	query := fmt.Sprintf(`
		INSERT INTO identities (%s, %s, email, secret, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (%s) DO NOTHING
	`, s.cols.Address, s.cols.Nonce, s.cols.Address)

	res, err := s.db.ExecContext(ctx, query,
		identity.Address,
		identity.Nonce,
		identity.Email,
		identity.Secret,
		identity.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("provision identity %s: %w", address, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("provision identity %s: %w", address, err)
	}
	if affected == 0 {
		// Lost the create race; the winner's row is authoritative.
		return s.FindByAddress(ctx, address)
	}
	return identity, nil
}

// RotateNonce replaces the stored nonce for an identity.
func (s *PostgresStore) RotateNonce(ctx context.Context, identity *core.Identity) error {
	nonce := uuid.New().String()
	query := fmt.Sprintf(`UPDATE identities SET %s = $1 WHERE %s = $2`, s.cols.Nonce, s.cols.Address)

	res, err := s.db.ExecContext(ctx, query, nonce, identity.Address)
	if err != nil {
		return fmt.Errorf("rotate nonce for %s: %w", identity.Address, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate nonce for %s: %w", identity.Address, err)
	}
	if affected == 0 {
		return core.ErrIdentityNotFound
	}

	identity.Nonce = nonce
	return nil
}

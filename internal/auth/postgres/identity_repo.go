// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

// Package postgres implements auth.IdentityRepository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sessiond/sessiond/internal/auth"
)

// DefaultTimeout bounds each repository call.
const DefaultTimeout = 3 * time.Second

const identityColumns = `id, email, password_hash, created_at, updated_at`

// poolIface is the subset of *pgxpool.Pool the repository needs.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IdentityRepository stores identities in the identities table.
type IdentityRepository struct {
	pool    poolIface
	timeout time.Duration
	now     func() time.Time
}

// Option configures an IdentityRepository.
type Option func(*IdentityRepository)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(r *IdentityRepository) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewIdentityRepository creates a repository backed by pool.
func NewIdentityRepository(pool poolIface, opts ...Option) *IdentityRepository {
	r := &IdentityRepository{
		pool:    pool,
		timeout: DefaultTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ auth.IdentityRepository = (*IdentityRepository)(nil)

// Create inserts a new identity.
func (r *IdentityRepository) Create(ctx context.Context, email, passwordHash string) (*auth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := r.now().Truncate(time.Microsecond)
	row := r.pool.QueryRow(ctx, `
		INSERT INTO identities (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING `+identityColumns,
		ulid.Make().String(), email, passwordHash, now,
	)

	identity, err := scanIdentity(row)
	if isUniqueViolation(err) {
		return nil, oops.Code("IDENTITY_CREATE_FAILED").With("email", email).Wrap(auth.ErrDuplicateEmail)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert identity").
			With("email", email).
			Wrap(err)
	}
	return identity, nil
}

// FindByEmail returns the identity bound to email.
func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_FIND_FAILED").With("email", email).Wrap(err)
	}
	return identity, nil
}

// Update applies the non-nil fields of update to the identity currently
// bound to email.
func (r *IdentityRepository) Update(ctx context.Context, email string, update auth.IdentityUpdate) (*auth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		UPDATE identities
		SET email = COALESCE($2, email),
		    password_hash = COALESCE($3, password_hash),
		    updated_at = $4
		WHERE email = $1
		RETURNING `+identityColumns,
		email, update.Email, update.PasswordHash, r.now().Truncate(time.Microsecond),
	)

	identity, err := scanIdentity(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, oops.Code("IDENTITY_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	case isUniqueViolation(err):
		return nil, oops.Code("IDENTITY_UPDATE_FAILED").With("email", email).Wrap(auth.ErrDuplicateEmail)
	case err != nil:
		return nil, oops.Code("IDENTITY_UPDATE_FAILED").With("email", email).Wrap(err)
	}
	return identity, nil
}

// List returns every identity, oldest first.
func (r *IdentityRepository) List(ctx context.Context) ([]*auth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY created_at, id`)
	if err != nil {
		return nil, oops.Code("IDENTITY_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var out []*auth.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, oops.Code("IDENTITY_LIST_FAILED").With("operation", "scan identity").Wrap(err)
		}
		out = append(out, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("IDENTITY_LIST_FAILED").With("operation", "iterate identities").Wrap(err)
	}
	return out, nil
}

func scanIdentity(row pgx.Row) (*auth.Identity, error) {
	var (
		identity auth.Identity
		id       string
	)
	if err := row.Scan(&id, &identity.Email, &identity.PasswordHash, &identity.CreatedAt, &identity.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers classify and wrap
	}

	parsed, err := ulid.Parse(id)
	if err != nil {
		return nil, oops.Code("IDENTITY_CORRUPT_ID").With("id", id).Wrap(err)
	}
	identity.ID = parsed
	identity.CreatedAt = identity.CreatedAt.UTC()
	identity.UpdatedAt = identity.UpdatedAt.UTC()
	return &identity, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxEmailLength bounds stored email addresses (RFC 5321 path limit).
const MaxEmailLength = 254

// Identity is an account record.
type Identity struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicIdentity is the projection of an Identity safe to return to clients.
type PublicIdentity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public returns the identity without its password hash.
func (i *Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:        i.ID.String(),
		Email:     i.Email,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// IdentityUpdate selects the fields to change. Nil fields are left as-is.
type IdentityUpdate struct {
	Email        *string
	PasswordHash *string
}

// ValidateEmail checks that email is a bare address such as
// "user@example.com". Display names and angle brackets are rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return oops.Code("AUTH_INVALID_EMAIL").Wrap(err)
	}
	if addr.Address != email || addr.Name != "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email must be a bare address")
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email domain must be qualified")
	}
	return nil
}

// IdentityRepository manages identity persistence.
type IdentityRepository interface {
	// Create stores a new identity.
	// Returns ErrDuplicateEmail if the email is taken.
	Create(ctx context.Context, email, passwordHash string) (*Identity, error)

	// FindByEmail retrieves an identity by exact email.
	// Returns ErrNotFound if no identity has the given email.
	FindByEmail(ctx context.Context, email string) (*Identity, error)

	// Update changes the identity currently bound to email.
	// Returns ErrNotFound or ErrDuplicateEmail.
	Update(ctx context.Context, email string, update IdentityUpdate) (*Identity, error)

	// List returns all identities ordered by creation time.
	List(ctx context.Context) ([]*Identity, error)
}

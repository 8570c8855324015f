// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/samber/oops"

	"github.com/sessiond/sessiond/internal/apperror"
)

// BearerScheme is the Authorization scheme carrying session tokens.
const BearerScheme = "Bearer"

// ParseBearer extracts the token from an Authorization header of the form
// "Bearer <token>". The scheme is matched case-insensitively.
func ParseBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// ResolvedSession is an authenticated request.
type ResolvedSession struct {
	Identity *Identity
	Token    string
	Claim    Claim
}

// Resolver determines the identity behind a bearer credential.
type Resolver struct {
	identities IdentityRepository
	sessions   SessionStore
	tokens     TokenCodec
}

// NewResolver creates a Resolver.
func NewResolver(identities IdentityRepository, sessions SessionStore, tokens TokenCodec) (*Resolver, error) {
	if identities == nil {
		return nil, oops.Code("RESOLVER_INVALID_CONFIG").Errorf("identity repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("RESOLVER_INVALID_CONFIG").Errorf("session store is required")
	}
	if tokens == nil {
		return nil, oops.Code("RESOLVER_INVALID_CONFIG").Errorf("token codec is required")
	}
	return &Resolver{identities: identities, sessions: sessions, tokens: tokens}, nil
}

// Resolve returns the identity authenticated by header.
//
// Every way of not being logged in yields a FORBIDDEN *apperror.Error.
// Failures to reach the record store or session store yield INTERNAL_ERROR so
// an outage is never mistaken for an anonymous request.
func (r *Resolver) Resolve(ctx context.Context, header string) (*Identity, error) {
	session, err := r.ResolveSession(ctx, header)
	if err != nil {
		return nil, err
	}
	return session.Identity, nil
}

// ResolveSession is Resolve that also returns the presented token and its
// decoded claim.
func (r *Resolver) ResolveSession(ctx context.Context, header string) (*ResolvedSession, error) {
	if header == "" {
		return nil, apperror.NotAuthenticated()
	}

	token, ok := ParseBearer(header)
	if !ok {
		return nil, apperror.NotAuthenticated()
	}

	claim, err := r.tokens.Verify(token)
	if err != nil {
		return nil, apperror.NotAuthenticated().WithCause(err)
	}

	identity, err := r.identities.FindByEmail(ctx, claim.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotAuthenticated().WithCause(err)
		}
		return nil, apperror.Internal(oops.Code("RESOLVE_IDENTITY_FAILED").
			With("operation", "find identity by email").
			Wrap(err))
	}
	// The email may have been released and taken by another identity since
	// the token was issued.
	if identity.ID.String() != claim.Subject {
		return nil, apperror.NotAuthenticated()
	}

	bound, found, err := r.sessions.Get(ctx, claim.Email)
	if err != nil {
		return nil, apperror.Internal(oops.Code("RESOLVE_SESSION_FAILED").
			With("operation", "get session binding").
			Wrap(err))
	}
	if !found || subtle.ConstantTimeCompare([]byte(bound), []byte(token)) != 1 {
		return nil, apperror.NotAuthenticated()
	}

	return &ResolvedSession{Identity: identity, Token: token, Claim: claim}, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

// Package authtest provides in-memory implementations of the auth ports for
// tests that exercise whole flows rather than individual calls.
package authtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sessiond/sessiond/internal/auth"
)

// IdentityRepository is a concurrency-safe in-memory auth.IdentityRepository.
type IdentityRepository struct {
	mu      sync.Mutex
	byEmail map[string]*auth.Identity
	now     func() time.Time

	// Err, when set, is returned from every call.
	Err error
}

// NewIdentityRepository creates an empty repository.
func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{byEmail: make(map[string]*auth.Identity), now: time.Now}
}

// Create implements auth.IdentityRepository.
func (r *IdentityRepository) Create(_ context.Context, email, passwordHash string) (*auth.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if _, ok := r.byEmail[email]; ok {
		return nil, auth.ErrDuplicateEmail
	}
	now := r.now().UTC()
	identity := &auth.Identity{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byEmail[email] = identity
	return clone(identity), nil
}

// FindByEmail implements auth.IdentityRepository.
func (r *IdentityRepository) FindByEmail(_ context.Context, email string) (*auth.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	identity, ok := r.byEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return clone(identity), nil
}

// Update implements auth.IdentityRepository.
func (r *IdentityRepository) Update(_ context.Context, email string, update auth.IdentityUpdate) (*auth.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	identity, ok := r.byEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if update.Email != nil && *update.Email != email {
		if _, taken := r.byEmail[*update.Email]; taken {
			return nil, auth.ErrDuplicateEmail
		}
		delete(r.byEmail, email)
		identity.Email = *update.Email
		r.byEmail[identity.Email] = identity
	}
	if update.PasswordHash != nil {
		identity.PasswordHash = *update.PasswordHash
	}
	identity.UpdatedAt = r.now().UTC()
	return clone(identity), nil
}

// List implements auth.IdentityRepository.
func (r *IdentityRepository) List(_ context.Context) ([]*auth.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]*auth.Identity, 0, len(r.byEmail))
	for _, identity := range r.byEmail {
		out = append(out, clone(identity))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Compare(out[j].ID) < 0
	})
	return out, nil
}

func clone(i *auth.Identity) *auth.Identity {
	c := *i
	return &c
}

// SessionStore is a concurrency-safe in-memory auth.SessionStore. TTLs are
// recorded but bindings never expire on their own.
type SessionStore struct {
	mu       sync.Mutex
	bindings map[string]string
	ttls     map[string]time.Duration

	// Err, when set, is returned from every call.
	Err error
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{bindings: make(map[string]string), ttls: make(map[string]time.Duration)}
}

// Get implements auth.SessionStore.
func (s *SessionStore) Get(_ context.Context, email string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", false, s.Err
	}
	token, ok := s.bindings[email]
	return token, ok, nil
}

// Set implements auth.SessionStore.
func (s *SessionStore) Set(_ context.Context, email, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.bindings[email] = token
	s.ttls[email] = ttl
	return nil
}

// Delete implements auth.SessionStore.
func (s *SessionStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.bindings, email)
	delete(s.ttls, email)
	return nil
}

// TTL returns the ttl recorded for the binding of email.
func (s *SessionStore) TTL(email string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ttl, ok := s.ttls[email]
	return ttl, ok
}

// Len returns the number of live bindings.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings)
}

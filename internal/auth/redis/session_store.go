// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

// Package redis implements auth.SessionStore on Redis.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/samber/oops"

	"github.com/sessiond/sessiond/internal/auth"
)

// DefaultTimeout bounds every store call when no timeout is configured.
const DefaultTimeout = 3 * time.Second

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)

// NewClient parses a redis:// URL into a client. password, when set,
// overrides the URL's credentials. The client is not dialed.
func NewClient(url, password string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_INVALID_URL").Wrap(err)
	}
	if password != "" {
		opts.Password = password
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	return goredis.NewClient(opts), nil
}

// SessionStore keeps one token per email under auth.SessionKey(email).
type SessionStore struct {
	client  goredis.Cmdable
	timeout time.Duration
}

// NewSessionStore creates a SessionStore. A non-positive timeout selects
// DefaultTimeout.
func NewSessionStore(client goredis.Cmdable, timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SessionStore{client: client, timeout: timeout}
}

// Get implements auth.SessionStore.
func (s *SessionStore) Get(ctx context.Context, email string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, err := s.client.Get(ctx, auth.SessionKey(email)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Code("SESSION_STORE_GET_FAILED").With("email", email).Wrap(err)
	}
	return token, true, nil
}

// Set implements auth.SessionStore. The binding expires after ttl.
func (s *SessionStore) Set(ctx context.Context, email, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return oops.Code("SESSION_STORE_INVALID_TTL").With("ttl", ttl).Errorf("binding ttl must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, auth.SessionKey(email), token, ttl).Err(); err != nil {
		return oops.Code("SESSION_STORE_SET_FAILED").With("email", email).Wrap(err)
	}
	return nil
}

// Delete implements auth.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, auth.SessionKey(email)).Err(); err != nil {
		return oops.Code("SESSION_STORE_DELETE_FAILED").With("email", email).Wrap(err)
	}
	return nil
}

// Ping checks connectivity.
func (s *SessionStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return oops.Code("SESSION_STORE_PING_FAILED").Wrap(err)
	}
	return nil
}

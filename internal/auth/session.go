// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package auth

import (
	"context"
	"time"
)

// SessionKeyPrefix namespaces session bindings in the key-value store.
const SessionKeyPrefix = "session:"

// SessionKey returns the store key of the binding for email.
func SessionKey(email string) string {
	return SessionKeyPrefix + email
}

// SessionStore holds at most one token binding per identity email.
//
// Connectivity failures must be returned as errors, never reported as a
// missing binding.
type SessionStore interface {
	// Get returns the bound token. found is false when no binding exists.
	Get(ctx context.Context, email string) (token string, found bool, err error)

	// Set binds token to email, replacing any existing binding. The binding
	// expires after ttl.
	Set(ctx context.Context, email, token string, ttl time.Duration) error

	// Delete removes the binding. Deleting a missing binding is not an error.
	Delete(ctx context.Context, email string) error
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned when a requested identity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned by IdentityRepository when an email is
	// already bound to another identity.
	ErrDuplicateEmail = errors.New("duplicate email")

	// ErrTokenInvalid is the single failure returned by TokenCodec.Verify.
	// Malformed, tampered and expired tokens are indistinguishable.
	ErrTokenInvalid = errors.New("token invalid or expired")
)

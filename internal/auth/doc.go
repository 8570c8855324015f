// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

// Package auth issues, validates and revokes session credentials.
//
// # Model
//
// An Identity is an account record owned by an IdentityRepository. A signed
// token (TokenCodec) is bound to at most one identity at a time through a
// SessionStore binding keyed by the identity's email. A request is
// authenticated only when its bearer token verifies AND equals the stored
// binding, so issuing a new binding invalidates every earlier token.
//
// # Services
//
//   - Resolver - maps an Authorization header to an Identity or a
//     classified failure
//   - Service - signup, login, logout, email change, password change and the
//     protected identity listing
//
// Every failure leaving Service is an *apperror.Error. Adapters wrap their
// failures with oops codes; Service classifies them at the boundary.
package auth

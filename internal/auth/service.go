// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/sessiond/sessiond/internal/apperror"
	"github.com/sessiond/sessiond/pkg/errutil"
)

// StatusOK is the status carried by every successful Response.
const StatusOK = "200"

// Operation names reported to logs and metrics.
const (
	OpSignup         = "signup"
	OpLogin          = "login"
	OpLogout         = "logout"
	OpChangeEmail    = "change_email"
	OpChangePassword = "change_password"
	OpListUsers      = "list_users"
)

// ResultSuccess is the metrics result label of a successful operation.
const ResultSuccess = "success"

// dummyPassword seeds the hash verified for unknown emails, so a login for
// a missing account costs the same as a wrong password.
//
//nolint:gosec // G101: not a credential.
const dummyPassword = "sessiond-timing-equalizer"

// Response is the result of a successful Service operation.
type Response struct {
	Status  string           `json:"status"`
	Message string           `json:"message,omitempty"`
	Token   string           `json:"token,omitempty"`
	Data    []PublicIdentity `json:"data,omitempty"`
}

// OperationRecorder receives the outcome of every Service operation.
type OperationRecorder interface {
	RecordAuthOperation(operation, result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthOperation(string, string) {}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for internal and best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTokenTTL sets the lifetime of issued tokens and their bindings.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithRecorder sets the operation outcome recorder.
func WithRecorder(r OperationRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Service coordinates the authentication flows.
//
// The only binding an identity can hold is the one written by its latest
// login or email change; concurrent logins resolve last-write-wins in the
// session store.
type Service struct {
	identities IdentityRepository
	sessions   SessionStore
	hasher     PasswordHasher
	tokens     TokenCodec
	resolver   *Resolver

	logger   *slog.Logger
	recorder OperationRecorder
	tokenTTL time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a Service.
func NewService(identities IdentityRepository, sessions SessionStore, hasher PasswordHasher, tokens TokenCodec, opts ...ServiceOption) (*Service, error) {
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	resolver, err := NewResolver(identities, sessions, tokens)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Wrap(err)
	}

	s := &Service{
		identities: identities,
		sessions:   sessions,
		hasher:     hasher,
		tokens:     tokens,
		resolver:   resolver,
		logger:     slog.Default(),
		recorder:   noopRecorder{},
		tokenTTL:   DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resolver returns the resolver used for protected operations.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// TokenTTL returns the lifetime of issued tokens.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Signup creates an identity. It does not log the identity in.
func (s *Service) Signup(ctx context.Context, email, password string) (resp *Response, err error) {
	defer func() { s.observe(ctx, OpSignup, err) }()

	if verr := ValidateEmail(email); verr != nil {
		return nil, apperror.BadUserInput("email").WithCause(verr)
	}
	if verr := ValidatePassword(password); verr != nil {
		return nil, apperror.BadUserInput("password").WithCause(verr)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperror.Internal(oops.Code("SIGNUP_FAILED").With("operation", "hash password").Wrap(err))
	}

	identity, err := s.identities.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperror.DuplicateEntry("email").WithCause(err)
		}
		return nil, apperror.Internal(oops.Code("SIGNUP_FAILED").With("operation", "create identity").Wrap(err))
	}

	return &Response{Status: StatusOK, Message: "User created with email " + identity.Email}, nil
}

// Login verifies credentials, issues a token and binds it to the identity,
// replacing any earlier binding. A request that already carries a live
// session is rejected.
//
// Unknown emails and wrong passwords are indistinguishable: both verify a
// hash and both fail with BAD_USER_INPUT without a field.
func (s *Service) Login(ctx context.Context, bearer, email, password string) (resp *Response, err error) {
	defer func() { s.observe(ctx, OpLogin, err) }()

	if bearer != "" {
		_, rerr := s.resolver.ResolveSession(ctx, bearer)
		switch {
		case rerr == nil:
			return nil, apperror.AlreadyAuthenticated()
		case apperror.Is(rerr, apperror.CodeInternal):
			return nil, rerr
		}
	}

	identity, lookupErr := s.identities.FindByEmail(ctx, email)
	var targetHash string
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, apperror.Internal(oops.Code("LOGIN_FAILED").
				With("operation", "find identity by email").
				Wrap(lookupErr))
		}
		targetHash = s.timingHash()
	} else {
		targetHash = identity.PasswordHash
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if identity == nil {
		return nil, apperror.BadUserInput("")
	}
	if verifyErr != nil {
		return nil, apperror.Internal(oops.Code("LOGIN_FAILED").
			With("operation", "verify password").
			With("identity_id", identity.ID.String()).
			Wrap(verifyErr))
	}
	if !valid {
		return nil, apperror.BadUserInput("")
	}

	if s.hasher.NeedsUpgrade(identity.PasswordHash) {
		s.rehash(ctx, identity, password)
	}

	token, err := s.bind(ctx, identity)
	if err != nil {
		return nil, apperror.Internal(oops.Code("LOGIN_FAILED").
			With("identity_id", identity.ID.String()).
			Wrap(err))
	}

	return &Response{Status: StatusOK, Message: "Login successful", Token: token}, nil
}

// Logout removes the binding of the presented token. Only the currently
// bound token can log out; a superseded token is rejected without touching
// the newer session.
func (s *Service) Logout(ctx context.Context, bearer string) (resp *Response, err error) {
	defer func() { s.observe(ctx, OpLogout, err) }()

	if strings.TrimSpace(bearer) == "" {
		return nil, apperror.NotAuthenticated()
	}
	token, ok := ParseBearer(bearer)
	if !ok {
		return nil, apperror.TokenInvalid()
	}
	claim, verr := s.tokens.Verify(token)
	if verr != nil {
		return nil, apperror.TokenInvalid().WithCause(verr)
	}

	bound, found, err := s.sessions.Get(ctx, claim.Email)
	if err != nil {
		return nil, apperror.Internal(oops.Code("LOGOUT_FAILED").
			With("operation", "get session binding").
			Wrap(err))
	}
	if !found || subtle.ConstantTimeCompare([]byte(bound), []byte(token)) != 1 {
		return nil, apperror.NotAuthenticated()
	}

	if err := s.sessions.Delete(ctx, claim.Email); err != nil {
		return nil, apperror.Internal(oops.Code("LOGOUT_FAILED").
			With("operation", "delete session binding").
			Wrap(err))
	}

	return &Response{Status: StatusOK, Message: "Logout successful"}, nil
}

// ChangeEmail moves the authenticated identity to newEmail. The old binding
// is deleted before the email changes, and a fresh token is bound under the
// new email, so the presented token stops working.
func (s *Service) ChangeEmail(ctx context.Context, bearer, newEmail string) (resp *Response, err error) {
	defer func() { s.observe(ctx, OpChangeEmail, err) }()

	session, err := s.resolver.ResolveSession(ctx, bearer)
	if err != nil {
		return nil, err
	}
	current := session.Identity.Email

	if verr := ValidateEmail(newEmail); verr != nil {
		return nil, apperror.BadUserInput("email").WithCause(verr)
	}
	if newEmail == current {
		return nil, apperror.BadUserInput("email")
	}

	_, lookupErr := s.identities.FindByEmail(ctx, newEmail)
	switch {
	case lookupErr == nil:
		return nil, apperror.DuplicateEntry("email")
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, apperror.Internal(oops.Code("CHANGE_EMAIL_FAILED").
			With("operation", "check email availability").
			Wrap(lookupErr))
	}

	if err := s.sessions.Delete(ctx, current); err != nil {
		return nil, apperror.Internal(oops.Code("CHANGE_EMAIL_FAILED").
			With("operation", "delete session binding").
			Wrap(err))
	}

	updated, err := s.identities.Update(ctx, current, IdentityUpdate{Email: &newEmail})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, apperror.NotFound("email").WithCause(err)
		case errors.Is(err, ErrDuplicateEmail):
			return nil, apperror.DuplicateEntry("email").WithCause(err)
		}
		return nil, apperror.Internal(oops.Code("CHANGE_EMAIL_FAILED").
			With("operation", "update email").
			Wrap(err))
	}

	token, err := s.bind(ctx, updated)
	if err != nil {
		return nil, apperror.Internal(oops.Code("CHANGE_EMAIL_FAILED").
			With("identity_id", updated.ID.String()).
			Wrap(err))
	}

	return &Response{Status: StatusOK, Message: "Email updated successfully", Token: token}, nil
}

// ChangePassword replaces the password of the authenticated identity. The
// current session stays valid.
func (s *Service) ChangePassword(ctx context.Context, bearer, oldPassword, newPassword string) (resp *Response, err error) {
	defer func() { s.observe(ctx, OpChangePassword, err) }()

	session, err := s.resolver.ResolveSession(ctx, bearer)
	if err != nil {
		return nil, err
	}
	identity := session.Identity

	if verr := ValidatePassword(newPassword); verr != nil {
		return nil, apperror.BadUserInput("newPassword").WithCause(verr)
	}

	valid, err := s.hasher.Verify(oldPassword, identity.PasswordHash)
	if err != nil {
		return nil, apperror.Internal(oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "verify password").
			Wrap(err))
	}
	if !valid {
		return nil, apperror.BadUserInput("oldPassword")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, apperror.Internal(oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err))
	}

	if _, err := s.identities.Update(ctx, identity.Email, IdentityUpdate{PasswordHash: &hash}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotFound("email").WithCause(err)
		}
		return nil, apperror.Internal(oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err))
	}

	return &Response{Status: StatusOK, Message: "Password updated successfully"}, nil
}

// ListUsers returns every identity without password hashes. It requires an
// authenticated request.
func (s *Service) ListUsers(ctx context.Context, bearer string) (resp *Response, err error) {
	defer func() { s.observe(ctx, OpListUsers, err) }()

	if _, err := s.resolver.ResolveSession(ctx, bearer); err != nil {
		return nil, err
	}

	identities, err := s.identities.List(ctx)
	if err != nil {
		return nil, apperror.Internal(oops.Code("LIST_USERS_FAILED").Wrap(err))
	}

	data := make([]PublicIdentity, 0, len(identities))
	for _, identity := range identities {
		data = append(data, identity.Public())
	}
	return &Response{Status: StatusOK, Data: data}, nil
}

// bind issues a token for identity and makes it the identity's only binding.
func (s *Service) bind(ctx context.Context, identity *Identity) (string, error) {
	token, _, err := s.tokens.Issue(Claim{Subject: identity.ID.String(), Email: identity.Email}, s.tokenTTL)
	if err != nil {
		return "", oops.With("operation", "issue token").Wrap(err)
	}
	if err := s.sessions.Set(ctx, identity.Email, token, s.tokenTTL); err != nil {
		return "", oops.With("operation", "set session binding").Wrap(err)
	}
	return token, nil
}

func (s *Service) rehash(ctx context.Context, identity *Identity, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		_, err = s.identities.Update(ctx, identity.Email, IdentityUpdate{PasswordHash: &hash})
	}
	if err != nil {
		errutil.LogWarn(s.logger, "best-effort password rehash failed", err,
			"operation", "rehash",
			"identity_id", identity.ID.String())
	}
}

func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			errutil.LogWarn(s.logger, "timing hash generation failed", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Service) observe(ctx context.Context, operation string, err error) {
	if err == nil {
		s.recorder.RecordAuthOperation(operation, ResultSuccess)
		return
	}
	code := apperror.CodeOf(err)
	s.recorder.RecordAuthOperation(operation, strings.ToLower(string(code)))
	if code == apperror.CodeInternal {
		errutil.LogErrorContext(ctx, s.logger, "auth operation failed", err, "operation", operation)
	}
}

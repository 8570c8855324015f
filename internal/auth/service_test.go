// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sessiond/sessiond/internal/apperror"
	"github.com/sessiond/sessiond/internal/auth"
	"github.com/sessiond/sessiond/internal/auth/mocks"
	"github.com/sessiond/sessiond/pkg/errutil"
)

const testTTL = time.Hour

type serviceFixture struct {
	identities *mocks.MockIdentityRepository
	sessions   *mocks.MockSessionStore
	hasher     *mocks.MockPasswordHasher
	tokens     *mocks.MockTokenCodec
	svc        *auth.Service
}

func newServiceFixture(t *testing.T, opts ...auth.ServiceOption) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		identities: mocks.NewMockIdentityRepository(t),
		sessions:   mocks.NewMockSessionStore(t),
		hasher:     mocks.NewMockPasswordHasher(t),
		tokens:     mocks.NewMockTokenCodec(t),
	}
	opts = append([]auth.ServiceOption{auth.WithTokenTTL(testTTL)}, opts...)
	svc, err := auth.NewService(f.identities, f.sessions, f.hasher, f.tokens, opts...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// expectResolved sets up the three lookups that authenticate token as identity.
func (f *serviceFixture) expectResolved(ctx context.Context, token string, identity *auth.Identity) {
	f.tokens.EXPECT().Verify(token).
		Return(auth.Claim{Subject: identity.ID.String(), Email: identity.Email}, nil).Once()
	f.identities.EXPECT().FindByEmail(ctx, identity.Email).Return(identity, nil).Once()
	f.sessions.EXPECT().Get(ctx, identity.Email).Return(token, true, nil).Once()
}

func newIdentity(email string) *auth.Identity {
	now := time.Now().UTC()
	return &auth.Identity{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: "$2a$10$stored",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		identities  auth.IdentityRepository
		sessions    auth.SessionStore
		hasher      auth.PasswordHasher
		tokens      auth.TokenCodec
		expectError string
	}{
		{"nil identity repository", nil, mocks.NewMockSessionStore(t), mocks.NewMockPasswordHasher(t), mocks.NewMockTokenCodec(t), "identity repository is required"},
		{"nil session store", mocks.NewMockIdentityRepository(t), nil, mocks.NewMockPasswordHasher(t), mocks.NewMockTokenCodec(t), "session store is required"},
		{"nil password hasher", mocks.NewMockIdentityRepository(t), mocks.NewMockSessionStore(t), nil, mocks.NewMockTokenCodec(t), "password hasher is required"},
		{"nil token codec", mocks.NewMockIdentityRepository(t), mocks.NewMockSessionStore(t), mocks.NewMockPasswordHasher(t), nil, "token codec is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.identities, tt.sessions, tt.hasher, tt.tokens)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewService_Options(t *testing.T) {
	f := newServiceFixture(t)
	assert.Equal(t, testTTL, f.svc.TokenTTL())
	assert.NotNil(t, f.svc.Resolver())

	svc, err := auth.NewService(f.identities, f.sessions, f.hasher, f.tokens, auth.WithTokenTTL(0))
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultTokenTTL, svc.TokenTTL())
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates identity", func(t *testing.T) {
		f := newServiceFixture(t)
		f.hasher.EXPECT().Hash("password123").Return("$2a$10$hash", nil)
		f.identities.EXPECT().Create(ctx, "a@example.com", "$2a$10$hash").Return(newIdentity("a@example.com"), nil)

		resp, err := f.svc.Signup(ctx, "a@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, auth.StatusOK, resp.Status)
		assert.Equal(t, "User created with email a@example.com", resp.Message)
		assert.Empty(t, resp.Token)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Signup(ctx, "not-an-email", "password123")
		errutil.AssertAppError(t, err, apperror.CodeBadUserInput, "email")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Signup(ctx, "a@example.com", "")
		errutil.AssertAppError(t, err, apperror.CodeBadUserInput, "password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newServiceFixture(t)
		f.hasher.EXPECT().Hash("password123").Return("$2a$10$hash", nil)
		f.identities.EXPECT().Create(ctx, "a@example.com", "$2a$10$hash").
			Return(nil, oops.Code("IDENTITY_CREATE_FAILED").Wrap(auth.ErrDuplicateEmail))

		_, err := f.svc.Signup(ctx, "a@example.com", "password123")
		errutil.AssertAppError(t, err, apperror.CodeDuplicateEntry, "email")
	})

	t.Run("record store failure is internal", func(t *testing.T) {
		f := newServiceFixture(t)
		f.hasher.EXPECT().Hash("password123").Return("$2a$10$hash", nil)
		f.identities.EXPECT().Create(ctx, "a@example.com", "$2a$10$hash").Return(nil, errors.New("connection refused"))

		_, err := f.svc.Signup(ctx, "a@example.com", "password123")
		errutil.AssertAppError(t, err, apperror.CodeInternal, "")
		assert.Equal(t, apperror.CodeInternal.Message(), apperror.FromError(err).Message)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login binds token", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.identities.EXPECT().FindByEmail(ctx, identity.Email).Return(identity, nil)
		f.hasher.EXPECT().Verify("password123", identity.PasswordHash).Return(true, nil)
		f.hasher.EXPECT().NeedsUpgrade(identity.PasswordHash).Return(false)
		f.tokens.EXPECT().Issue(auth.Claim{Subject: identity.ID.String(), Email: identity.Email}, testTTL).
			Return("tok", time.Now().Add(testTTL), nil)
		f.sessions.EXPECT().Set(ctx, identity.Email, "tok", testTTL).Return(nil)

		resp, err := f.svc.Login(ctx, "", identity.Email, "password123")
		require.NoError(t, err)
		assert.Equal(t, auth.StatusOK, resp.Status)
		assert.Equal(t, "Login successful", resp.Message)
		assert.Equal(t, "tok", resp.Token)
	})

	t.Run("unknown email verifies a dummy hash", func(t *testing.T) {
		f := newServiceFixture(t)
		f.identities.EXPECT().FindByEmail(ctx, "nobody@example.com").Return(nil, auth.ErrNotFound)
		f.hasher.EXPECT().Hash(mock.AnythingOfType("string")).Return("$2a$10$dummy", nil).Once()
		f.hasher.EXPECT().Verify("password123", "$2a$10$dummy").Return(false, nil).Twice()

		for range 2 {
			resp, err := f.svc.Login(ctx, "", "nobody@example.com", "password123")
			assert.Nil(t, resp)
			errutil.AssertAppError(t, err, apperror.CodeBadUserInput, "")
		}
	})

	t.Run("wrong password is indistinguishable from unknown email", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.identities.EXPECT().FindByEmail(ctx, identity.Email).Return(identity, nil)
		f.hasher.EXPECT().Verify("wrong", identity.PasswordHash).Return(false, nil)

		_, err := f.svc.Login(ctx, "", identity.Email, "wrong")
		errutil.AssertAppError(t, err, apperror.CodeBadUserInput, "")
		assert.Equal(t, apperror.CodeBadUserInput.Message(), apperror.FromError(err).Message)
	})

	t.Run("live session is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "live", identity)

		_, err := f.svc.Login(ctx, "Bearer live", identity.Email, "password123")
		errutil.AssertAppError(t, err, apperror.CodeAlreadyAuthenticated, "")
	})

	t.Run("stale bearer does not block login", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.tokens.EXPECT().Verify("stale").Return(auth.Claim{}, auth.ErrTokenInvalid)
		f.identities.EXPECT().FindByEmail(ctx, identity.Email).Return(identity, nil)
		f.hasher.EXPECT().Verify("password123", identity.PasswordHash).Return(true, nil)
		f.hasher.EXPECT().NeedsUpgrade(identity.PasswordHash).Return(false)
		f.tokens.EXPECT().Issue(mock.Anything, testTTL).Return("fresh", time.Now().Add(testTTL), nil)
		f.sessions.EXPECT().Set(ctx, identity.Email, "fresh", testTTL).Return(nil)

		resp, err := f.svc.Login(ctx, "Bearer stale", identity.Email, "password123")
		require.NoError(t, err)
		assert.Equal(t, "fresh", resp.Token)
	})

	t.Run("session store outage during resolve is internal", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.tokens.EXPECT().Verify("live").Return(auth.Claim{Subject: identity.ID.String(), Email: identity.Email}, nil)
		f.identities.EXPECT().FindByEmail(ctx, identity.Email).Return(identity, nil)
		f.sessions.EXPECT().Get(ctx, identity.Email).Return("", false, errors.New("i/o timeout"))

		_, err := f.svc.Login(ctx, "Bearer live", identity.Email, "password123")
		errutil.AssertAppError(t, err, apperror.CodeInternal, "")
	})

	t.Run("outdated hash is upgraded", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.identities.EXPECT().FindByEmail(ctx, identity.Email).Return(identity, nil)
		f.hasher.EXPECT().Verify("password123", identity.PasswordHash).Return(true, nil)
		f.hasher.EXPECT().NeedsUpgrade(identity.PasswordHash).Return(true)
		f.hasher.EXPECT().Hash("password123").Return("$2a$12$upgraded", nil)
		f.identities.EXPECT().Update(ctx, identity.Email, mock.MatchedBy(func(u auth.IdentityUpdate) bool {
			return u.Email == nil && u.PasswordHash != nil && *u.PasswordHash == "$2a$12$upgraded"
		})).Return(identity, nil)
		f.tokens.EXPECT().Issue(mock.Anything, testTTL).Return("tok", time.Now().Add(testTTL), nil)
		f.sessions.EXPECT().Set(ctx, identity.Email, "tok", testTTL).Return(nil)

		_, err := f.svc.Login(ctx, "", identity.Email, "password123")
		require.NoError(t, err)
	})

	t.Run("failed upgrade does not fail login", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.identities.EXPECT().FindByEmail(ctx, identity.Email).Return(identity, nil)
		f.hasher.EXPECT().Verify("password123", identity.PasswordHash).Return(true, nil)
		f.hasher.EXPECT().NeedsUpgrade(identity.PasswordHash).Return(true)
		f.hasher.EXPECT().Hash("password123").Return("$2a$12$upgraded", nil)
		f.identities.EXPECT().Update(ctx, identity.Email, mock.Anything).Return(nil, errors.New("read-only replica"))
		f.tokens.EXPECT().Issue(mock.Anything, testTTL).Return("tok", time.Now().Add(testTTL), nil)
		f.sessions.EXPECT().Set(ctx, identity.Email, "tok", testTTL).Return(nil)

		resp, err := f.svc.Login(ctx, "", identity.Email, "password123")
		require.NoError(t, err)
		assert.Equal(t, "tok", resp.Token)
	})

	t.Run("malformed stored hash is internal", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.identities.EXPECT().FindByEmail(ctx, identity.Email).Return(identity, nil)
		f.hasher.EXPECT().Verify("password123", identity.PasswordHash).Return(false, errors.New("invalid hash"))

		_, err := f.svc.Login(ctx, "", identity.Email, "password123")
		errutil.AssertAppError(t, err, apperror.CodeInternal, "")
	})

	t.Run("binding failure is internal", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.identities.EXPECT().FindByEmail(ctx, identity.Email).Return(identity, nil)
		f.hasher.EXPECT().Verify("password123", identity.PasswordHash).Return(true, nil)
		f.hasher.EXPECT().NeedsUpgrade(identity.PasswordHash).Return(false)
		f.tokens.EXPECT().Issue(mock.Anything, testTTL).Return("tok", time.Now().Add(testTTL), nil)
		f.sessions.EXPECT().Set(ctx, identity.Email, "tok", testTTL).Return(context.DeadlineExceeded)

		_, err := f.svc.Login(ctx, "", identity.Email, "password123")
		errutil.AssertAppError(t, err, apperror.CodeInternal, "")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("record store failure is internal", func(t *testing.T) {
		f := newServiceFixture(t)
		f.identities.EXPECT().FindByEmail(ctx, "a@example.com").Return(nil, errors.New("too many connections"))

		_, err := f.svc.Login(ctx, "", "a@example.com", "password123")
		errutil.AssertAppError(t, err, apperror.CodeInternal, "")
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	claim := auth.Claim{Subject: ulid.Make().String(), Email: "a@example.com"}

	t.Run("missing bearer is not authenticated", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Logout(ctx, "")
		errutil.AssertAppError(t, err, apperror.CodeForbidden, "")
	})

	t.Run("malformed bearer is token invalid", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Logout(ctx, "Basic abc")
		errutil.AssertAppError(t, err, apperror.CodeTokenInvalid, "token")
	})

	t.Run("undecodable token is token invalid", func(t *testing.T) {
		f := newServiceFixture(t)
		f.tokens.EXPECT().Verify("expired").Return(auth.Claim{}, auth.ErrTokenInvalid)

		_, err := f.svc.Logout(ctx, "Bearer expired")
		errutil.AssertAppError(t, err, apperror.CodeTokenInvalid, "token")
	})

	t.Run("bound token deletes binding", func(t *testing.T) {
		f := newServiceFixture(t)
		f.tokens.EXPECT().Verify("tok").Return(claim, nil)
		f.sessions.EXPECT().Get(ctx, claim.Email).Return("tok", true, nil)
		f.sessions.EXPECT().Delete(ctx, claim.Email).Return(nil)

		resp, err := f.svc.Logout(ctx, "Bearer tok")
		require.NoError(t, err)
		assert.Equal(t, "Logout successful", resp.Message)
	})

	t.Run("superseded token leaves newer session alone", func(t *testing.T) {
		f := newServiceFixture(t)
		f.tokens.EXPECT().Verify("old").Return(claim, nil)
		f.sessions.EXPECT().Get(ctx, claim.Email).Return("new", true, nil)

		_, err := f.svc.Logout(ctx, "Bearer old")
		errutil.AssertAppError(t, err, apperror.CodeForbidden, "")
	})

	t.Run("already logged out", func(t *testing.T) {
		f := newServiceFixture(t)
		f.tokens.EXPECT().Verify("tok").Return(claim, nil)
		f.sessions.EXPECT().Get(ctx, claim.Email).Return("", false, nil)

		_, err := f.svc.Logout(ctx, "Bearer tok")
		errutil.AssertAppError(t, err, apperror.CodeForbidden, "")
	})

	t.Run("session store failure is internal", func(t *testing.T) {
		f := newServiceFixture(t)
		f.tokens.EXPECT().Verify("tok").Return(claim, nil)
		f.sessions.EXPECT().Get(ctx, claim.Email).Return("tok", true, nil)
		f.sessions.EXPECT().Delete(ctx, claim.Email).Return(errors.New("connection reset"))

		_, err := f.svc.Logout(ctx, "Bearer tok")
		errutil.AssertAppError(t, err, apperror.CodeInternal, "")
	})
}

func TestService_ChangeEmail(t *testing.T) {
	ctx := context.Background()
	const newEmail = "b@example.com"

	t.Run("requires authentication", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.ChangeEmail(ctx, "", newEmail)
		errutil.AssertAppError(t, err, apperror.CodeForbidden, "")
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)

		_, err := f.svc.ChangeEmail(ctx, "Bearer tok", "nope")
		errutil.AssertAppError(t, err, apperror.CodeBadUserInput, "email")
	})

	t.Run("rejects unchanged email", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)

		_, err := f.svc.ChangeEmail(ctx, "Bearer tok", identity.Email)
		errutil.AssertAppError(t, err, apperror.CodeBadUserInput, "email")
	})

	t.Run("rejects email in use", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)
		f.identities.EXPECT().FindByEmail(ctx, newEmail).Return(newIdentity(newEmail), nil)

		_, err := f.svc.ChangeEmail(ctx, "Bearer tok", newEmail)
		errutil.AssertAppError(t, err, apperror.CodeDuplicateEntry, "email")
	})

	t.Run("deletes old binding before rebinding under new email", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		updated := *identity
		updated.Email = newEmail
		f.expectResolved(ctx, "tok", identity)
		f.identities.EXPECT().FindByEmail(ctx, newEmail).Return(nil, auth.ErrNotFound)

		mock.InOrder(
			f.sessions.EXPECT().Delete(ctx, identity.Email).Return(nil).Call,
			f.identities.EXPECT().Update(ctx, identity.Email, mock.MatchedBy(func(u auth.IdentityUpdate) bool {
				return u.Email != nil && *u.Email == newEmail && u.PasswordHash == nil
			})).Return(&updated, nil).Call,
			f.tokens.EXPECT().Issue(auth.Claim{Subject: identity.ID.String(), Email: newEmail}, testTTL).
				Return("tok2", time.Now().Add(testTTL), nil).Call,
			f.sessions.EXPECT().Set(ctx, newEmail, "tok2", testTTL).Return(nil).Call,
		)

		resp, err := f.svc.ChangeEmail(ctx, "Bearer tok", newEmail)
		require.NoError(t, err)
		assert.Equal(t, "tok2", resp.Token)
		assert.Equal(t, "Email updated successfully", resp.Message)
	})

	t.Run("identity vanished", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)
		f.identities.EXPECT().FindByEmail(ctx, newEmail).Return(nil, auth.ErrNotFound)
		f.sessions.EXPECT().Delete(ctx, identity.Email).Return(nil)
		f.identities.EXPECT().Update(ctx, identity.Email, mock.Anything).Return(nil, auth.ErrNotFound)

		_, err := f.svc.ChangeEmail(ctx, "Bearer tok", newEmail)
		errutil.AssertAppError(t, err, apperror.CodeNotFound, "email")
	})

	t.Run("email taken concurrently", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)
		f.identities.EXPECT().FindByEmail(ctx, newEmail).Return(nil, auth.ErrNotFound)
		f.sessions.EXPECT().Delete(ctx, identity.Email).Return(nil)
		f.identities.EXPECT().Update(ctx, identity.Email, mock.Anything).Return(nil, auth.ErrDuplicateEmail)

		_, err := f.svc.ChangeEmail(ctx, "Bearer tok", newEmail)
		errutil.AssertAppError(t, err, apperror.CodeDuplicateEntry, "email")
	})

	t.Run("session store failure is internal", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)
		f.identities.EXPECT().FindByEmail(ctx, newEmail).Return(nil, auth.ErrNotFound)
		f.sessions.EXPECT().Delete(ctx, identity.Email).Return(errors.New("connection refused"))

		_, err := f.svc.ChangeEmail(ctx, "Bearer tok", newEmail)
		errutil.AssertAppError(t, err, apperror.CodeInternal, "")
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("requires authentication", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.ChangePassword(ctx, "Bearer", "old", "new")
		errutil.AssertAppError(t, err, apperror.CodeForbidden, "")
	})

	t.Run("rejects empty new password", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)

		_, err := f.svc.ChangePassword(ctx, "Bearer tok", "old", "")
		errutil.AssertAppError(t, err, apperror.CodeBadUserInput, "newPassword")
	})

	t.Run("rejects wrong old password", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)
		f.hasher.EXPECT().Verify("wrong", identity.PasswordHash).Return(false, nil)

		_, err := f.svc.ChangePassword(ctx, "Bearer tok", "wrong", "new-password")
		errutil.AssertAppError(t, err, apperror.CodeBadUserInput, "oldPassword")
	})

	t.Run("stores new hash and keeps session", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)
		f.hasher.EXPECT().Verify("old-password", identity.PasswordHash).Return(true, nil)
		f.hasher.EXPECT().Hash("new-password").Return("$2a$10$new", nil)
		f.identities.EXPECT().Update(ctx, identity.Email, mock.MatchedBy(func(u auth.IdentityUpdate) bool {
			return u.Email == nil && u.PasswordHash != nil && *u.PasswordHash == "$2a$10$new"
		})).Return(identity, nil)

		resp, err := f.svc.ChangePassword(ctx, "Bearer tok", "old-password", "new-password")
		require.NoError(t, err)
		assert.Equal(t, "Password updated successfully", resp.Message)
		assert.Empty(t, resp.Token)
	})

	t.Run("record store failure is internal", func(t *testing.T) {
		f := newServiceFixture(t)
		identity := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", identity)
		f.hasher.EXPECT().Verify("old-password", identity.PasswordHash).Return(true, nil)
		f.hasher.EXPECT().Hash("new-password").Return("$2a$10$new", nil)
		f.identities.EXPECT().Update(ctx, identity.Email, mock.Anything).Return(nil, errors.New("disk full"))

		_, err := f.svc.ChangePassword(ctx, "Bearer tok", "old-password", "new-password")
		errutil.AssertAppError(t, err, apperror.CodeInternal, "")
	})
}

func TestService_ListUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("requires authentication", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.ListUsers(ctx, "")
		errutil.AssertAppError(t, err, apperror.CodeForbidden, "")
	})

	t.Run("returns public identities", func(t *testing.T) {
		f := newServiceFixture(t)
		a := newIdentity("a@example.com")
		b := newIdentity("b@example.com")
		f.expectResolved(ctx, "tok", a)
		f.identities.EXPECT().List(ctx).Return([]*auth.Identity{a, b}, nil)

		resp, err := f.svc.ListUsers(ctx, "Bearer tok")
		require.NoError(t, err)
		assert.Equal(t, auth.StatusOK, resp.Status)
		assert.Equal(t, []auth.PublicIdentity{a.Public(), b.Public()}, resp.Data)
	})

	t.Run("record store failure is internal", func(t *testing.T) {
		f := newServiceFixture(t)
		a := newIdentity("a@example.com")
		f.expectResolved(ctx, "tok", a)
		f.identities.EXPECT().List(ctx).Return(nil, errors.New("connection refused"))

		_, err := f.svc.ListUsers(ctx, "Bearer tok")
		errutil.AssertAppError(t, err, apperror.CodeInternal, "")
	})
}

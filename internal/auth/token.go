// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the token lifetime used when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// jtiBytes is the size of the random token identifier. It guarantees two
// tokens issued within the same second differ.
const jtiBytes = 16

// Claim is the decoded payload of a signed token.
type Claim struct {
	Subject   string // identity ID
	Email     string
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and verifies signed, expiring tokens.
type TokenCodec interface {
	// Issue signs claim and returns the token and its expiry. IssuedAt,
	// ExpiresAt and ID on claim are ignored and set by the codec.
	Issue(claim Claim, ttl time.Duration) (token string, expiresAt time.Time, err error)

	// Verify checks signature and expiry. Every failure is ErrTokenInvalid.
	Verify(token string) (Claim, error)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// JWTCodec implements TokenCodec with HS256 JSON Web Tokens.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
}

// JWTOption configures a JWTCodec.
type JWTOption func(*JWTCodec)

// WithClock replaces the codec's time source.
func WithClock(now func() time.Time) JWTOption {
	return func(c *JWTCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewJWTCodec creates a codec signing with secret.
func NewJWTCodec(secret []byte, opts ...JWTOption) (*JWTCodec, error) {
	if len(secret) == 0 {
		return nil, oops.Code("TOKEN_SECRET_REQUIRED").Errorf("signing secret cannot be empty")
	}
	c := &JWTCodec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for claim valid for ttl.
func (c *JWTCodec) Issue(claim Claim, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, oops.Code("TOKEN_INVALID_TTL").With("ttl", ttl).Errorf("token lifetime must be positive")
	}
	if claim.Email == "" {
		return "", time.Time{}, oops.Code("TOKEN_INVALID_CLAIM").Errorf("email claim cannot be empty")
	}

	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_ISSUE_FAILED").With("operation", "generate jti").Wrap(err)
	}

	now := c.now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   claim.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: claim.Email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_ISSUE_FAILED").With("operation", "sign").Wrap(err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Verify parses token and returns its claim when the signature is valid and
// the codec's clock is strictly before the expiry.
func (c *JWTCodec) Verify(token string) (Claim, error) {
	if token == "" {
		return Claim{}, ErrTokenInvalid
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return Claim{}, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || claims.Email == "" {
		return Claim{}, ErrTokenInvalid
	}

	out := Claim{
		Subject:   claims.Subject,
		Email:     claims.Email,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.UTC()
	}
	return out, nil
}

func generateJTI() (string, error) {
	b := make([]byte, jtiBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

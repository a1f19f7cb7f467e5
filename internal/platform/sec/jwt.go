// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec holds the cryptographic primitives of the auth flows: HS256
// access tokens, one-time numeric codes and token digests.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/healthid/pkg/uuid"
)

// AuthClaims is the access token payload. The subject is the account's
// external handle; the internal account id never leaves the server.
type AuthClaims struct {
	jwt.RegisteredClaims
}

// Handle returns the account handle carried in the subject claim.
func (claims *AuthClaims) Handle() string {
	return claims.Subject
}

// Remaining returns the time left before the token expires, never negative.
// Logout blocklists a token for exactly this long.
func (claims *AuthClaims) Remaining(now time.Time) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return max(claims.ExpiresAt.Sub(now), 0)
}

// TokenService signs and verifies access tokens with a shared HS256 secret.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService rejects an empty secret.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("sec: signing secret must not be empty")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer}, nil
}

/*
GenerateAccessToken signs a token for handle valid for timeToLive.

Description: Every token carries a fresh jti, so two logins of the same
account within one second still produce distinct tokens and blocklisting
one never affects the other.
*/
func (service *TokenService) GenerateAccessToken(handle string, timeToLive time.Duration) (string, error) {
	issuedAt := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   handle,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(timeToLive)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec_access_token_sign_failed: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, algorithm, issuer and expiry, and requires a subject.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return service.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("sec_access_token_invalid: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("sec_access_token_invalid: missing subject")
	}
	return claims, nil
}

// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidBearerToken covers malformed, mis-signed and expired bearer
// tokens. Callers must not distinguish these cases to the client.
var ErrInvalidBearerToken = errors.New("invalid bearer token")

// bearerClaims is the JWT payload of a bearer token. The subject is the
// opaque session id; the audience is the customer the token was minted
// for.
type bearerClaims struct {
	jwt.RegisteredClaims
}

// BearerTokenManager mints and verifies HS256 bearer tokens that carry a
// session id. The token is only a transport for the id; authorization
// state lives in the session store.
type BearerTokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewBearerTokenManager creates a manager signing with the given shared
// secret.
func NewBearerTokenManager(secret []byte, issuer string, ttl time.Duration) *BearerTokenManager {
	return &BearerTokenManager{secret: secret, issuer: issuer, ttl: ttl}
}

// Mint produces a signed token for the session.
func (m *BearerTokenManager) Mint(session *Session) (string, error) {
	now := time.Now()
	claims := bearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   session.ID,
			Audience:  jwt.ClaimStrings{strconv.Itoa(session.Customer)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign bearer token: %w", err)
	}
	return signed, nil
}

// SessionID verifies the token and returns the session id it carries.
// The customer audience must match; a token minted for one customer never
// authorizes another.
func (m *BearerTokenManager) SessionID(token string, customer int) (string, error) {
	var claims bearerClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(strconv.Itoa(customer)),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidBearerToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidBearerToken
	}
	return claims.Subject, nil
}

// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWrongCustomer is returned when a credential resolves to a session
// minted for a different customer.
var ErrWrongCustomer = errors.New("session belongs to a different customer")

// SessionAuthService resolves credentials (cookie ids, bearer tokens)
// into live sessions and applies sliding expiry on successful use.
type SessionAuthService struct {
	store      *BadgerSessionStore
	bearer     *BearerTokenManager
	sessionTTL time.Duration
}

// NewSessionAuthService wires the session store and bearer verifier.
func NewSessionAuthService(store *BadgerSessionStore, bearer *BearerTokenManager, sessionTTL time.Duration) *SessionAuthService {
	return &SessionAuthService{store: store, bearer: bearer, sessionTTL: sessionTTL}
}

// GetAuthTokenForCookieID resolves the opaque id carried in a customer
// cookie. Absent, expired and cross-customer sessions all fail.
func (s *SessionAuthService) GetAuthTokenForCookieID(ctx context.Context, customer int, cookieID string) (*Session, error) {
	session, err := s.store.Get(ctx, cookieID)
	if err != nil {
		return nil, err
	}
	if session.Customer != customer {
		return nil, ErrWrongCustomer
	}
	return session, nil
}

// GetAuthTokenForBearerToken verifies a bearer JWT and resolves the
// session it carries.
func (s *SessionAuthService) GetAuthTokenForBearerToken(ctx context.Context, customer int, token string) (*Session, error) {
	id, err := s.bearer.SessionID(token, customer)
	if err != nil {
		return nil, err
	}
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Customer != customer {
		return nil, ErrWrongCustomer
	}
	return session, nil
}

// Refresh slides the session's expiry forward after a successful
// authorization.
func (s *SessionAuthService) Refresh(ctx context.Context, session *Session) error {
	if err := s.store.Touch(ctx, session.ID, time.Now().Add(s.sessionTTL)); err != nil {
		return fmt.Errorf("refresh session %s: %w", session.ID, err)
	}
	return nil
}

// CreateSession mints a session for a customer with granted roles. Used
// by the token-issue surface and by tests.
func (s *SessionAuthService) CreateSession(ctx context.Context, customer int, roles []string) (*Session, error) {
	return s.store.Create(ctx, customer, roles, s.sessionTTL)
}

// MintBearerToken produces a bearer JWT for an existing session.
func (s *SessionAuthService) MintBearerToken(session *Session) (string, error) {
	return s.bearer.Mint(session)
}

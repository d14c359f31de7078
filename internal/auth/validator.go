// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dlcs/protagonist-sub009/internal/logging"
	"github.com/dlcs/protagonist-sub009/internal/metrics"
)

// Mechanism selects which credential sources TryValidate consults.
type Mechanism string

const (
	// MechanismCookie consults only the per-customer session cookie.
	MechanismCookie Mechanism = "cookie"
	// MechanismBearer consults only the Authorization bearer header.
	MechanismBearer Mechanism = "bearer"
	// MechanismAll tries the cookie first and falls back to bearer.
	// The first mechanism to authorize wins; results are never merged.
	MechanismAll Mechanism = "all"
)

// Result is the outcome of an access validation.
type Result string

const (
	// ResultOpen means the asset requires no roles; no credential was
	// consulted.
	ResultOpen Result = "open"
	// ResultAuthorized means a credential resolved to a session whose
	// roles satisfy the requirement.
	ResultAuthorized Result = "authorized"
	// ResultUnauthorized covers missing, expired and insufficient
	// credentials alike.
	ResultUnauthorized Result = "unauthorized"
)

// Authorized reports whether the result permits serving the asset.
func (r Result) Authorized() bool {
	return r == ResultOpen || r == ResultAuthorized
}

// AssetAccessValidator decides whether a request may access a
// role-restricted asset.
type AssetAccessValidator struct {
	sessions *SessionAuthService
	cookies  *CookieManager
	checker  *AccessChecker
}

// NewAssetAccessValidator wires the session service, cookie manager and
// role checker.
func NewAssetAccessValidator(sessions *SessionAuthService, cookies *CookieManager, checker *AccessChecker) *AssetAccessValidator {
	return &AssetAccessValidator{sessions: sessions, cookies: cookies, checker: checker}
}

// TryValidate checks the request's credentials against the asset's
// required roles. An empty required list is Open with zero I/O. On a
// successful cookie authorization the cookie is re-issued on w, sliding
// the session window; bearer authorizations never set cookies.
func (v *AssetAccessValidator) TryValidate(ctx context.Context, w http.ResponseWriter, r *http.Request, customer int, required []string, mechanism Mechanism) Result {
	if len(required) == 0 {
		metrics.AccessDecisions.WithLabelValues(string(mechanism), string(ResultOpen)).Inc()
		return ResultOpen
	}

	var result Result
	switch mechanism {
	case MechanismCookie:
		result = v.validateCookie(ctx, w, r, customer, required)
	case MechanismBearer:
		result = v.validateBearer(ctx, r, customer, required)
	case MechanismAll:
		result = v.validateCookie(ctx, w, r, customer, required)
		if !result.Authorized() {
			result = v.validateBearer(ctx, r, customer, required)
		}
	default:
		result = ResultUnauthorized
	}

	metrics.AccessDecisions.WithLabelValues(string(mechanism), string(result)).Inc()
	return result
}

func (v *AssetAccessValidator) validateCookie(ctx context.Context, w http.ResponseWriter, r *http.Request, customer int, required []string) Result {
	cookieID, ok := v.cookies.Read(r, customer)
	if !ok {
		return ResultUnauthorized
	}

	session, err := v.sessions.GetAuthTokenForCookieID(ctx, customer, cookieID)
	if err != nil {
		return ResultUnauthorized
	}

	allowed, err := v.checker.CanSessionUserAccessRoles(session, customer, required)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int("customer", customer).Msg("role check failed")
		return ResultUnauthorized
	}
	if !allowed {
		return ResultUnauthorized
	}

	if err := v.sessions.Refresh(ctx, session); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session", session.ID).Msg("failed to slide session expiry")
	}
	v.cookies.Issue(w, customer, session.ID)
	return ResultAuthorized
}

func (v *AssetAccessValidator) validateBearer(ctx context.Context, r *http.Request, customer int, required []string) Result {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return ResultUnauthorized
	}

	session, err := v.sessions.GetAuthTokenForBearerToken(ctx, customer, token)
	if err != nil {
		return ResultUnauthorized
	}

	allowed, err := v.checker.CanSessionUserAccessRoles(session, customer, required)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int("customer", customer).Msg("role check failed")
		return ResultUnauthorized
	}
	if !allowed {
		return ResultUnauthorized
	}

	if err := v.sessions.Refresh(ctx, session); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session", session.ID).Msg("failed to slide session expiry")
	}
	return ResultAuthorized
}

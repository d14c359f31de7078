// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// cookieValuePrefix marks the cookie payload format. The value after the
// prefix is the opaque session id.
const cookieValuePrefix = "id="

// CookieManager issues and reads per-customer auth cookies. Each customer
// gets its own cookie name so sessions for different tenants on the same
// host never collide.
type CookieManager struct {
	// Domain restricts issued cookies; empty means host-only.
	Domain string
	// Secure should be true everywhere except local development.
	Secure bool
	// TTL is the cookie lifetime, re-applied on every refresh.
	TTL time.Duration
}

// NewCookieManager creates a manager with the given cookie lifetime.
func NewCookieManager(domain string, secure bool, ttl time.Duration) *CookieManager {
	return &CookieManager{Domain: domain, Secure: secure, TTL: ttl}
}

// Name returns the cookie name scoped to a customer.
func (m *CookieManager) Name(customer int) string {
	return fmt.Sprintf("dlcsAuthSession-%d", customer)
}

// Read extracts the session id for a customer from the request. ok is
// false when the cookie is absent or its value is not in the expected
// format.
func (m *CookieManager) Read(r *http.Request, customer int) (sessionID string, ok bool) {
	c, err := r.Cookie(m.Name(customer))
	if err != nil {
		return "", false
	}
	value, found := strings.CutPrefix(c.Value, cookieValuePrefix)
	if !found || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// Issue sets (or refreshes) the customer's session cookie on the
// response.
func (m *CookieManager) Issue(w http.ResponseWriter, customer int, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.Name(customer),
		Value:    cookieValuePrefix + sessionID,
		Path:     "/",
		Domain:   m.Domain,
		Expires:  time.Now().Add(m.TTL),
		Secure:   m.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

// Clear expires the customer's session cookie.
func (m *CookieManager) Clear(w http.ResponseWriter, customer int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.Name(customer),
		Value:    "",
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   -1,
		Secure:   m.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

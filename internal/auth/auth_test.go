// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

func newTestStore(t *testing.T) *BadgerSessionStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerSessionStore(db)
}

func TestBadgerSessionStore_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.Create(ctx, 5, []string{"clickthrough"}, time.Hour)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if session.ID == "" {
		t.Fatal("Create() returned empty session id")
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Customer != 5 || len(got.Roles) != 1 || got.Roles[0] != "clickthrough" {
		t.Errorf("Get() = %+v, want customer 5 with clickthrough role", got)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrSessionNotFound", err)
	}

	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrSessionNotFound", err)
	}
}

func TestBadgerSessionStore_Expiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.Create(ctx, 5, nil, -time.Minute)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Get(expired) error = %v, want ErrSessionExpired", err)
	}

	// Touch resurrects an expired-but-not-cleaned session.
	if err := store.Touch(ctx, session.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Touch() error: %v", err)
	}
	if _, err := store.Get(ctx, session.ID); err != nil {
		t.Errorf("Get() after Touch error = %v", err)
	}
}

func TestBadgerSessionStore_CleanupExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, 5, nil, -time.Minute); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	live, err := store.Create(ctx, 5, nil, time.Hour)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	removed, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("CleanupExpired() removed %d, want 1", removed)
	}
	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Errorf("live session removed by cleanup: %v", err)
	}
}

func TestCookieManager_RoundTrip(t *testing.T) {
	m := NewCookieManager("", false, time.Hour)

	rec := httptest.NewRecorder()
	m.Issue(rec, 5, "abc-123")

	resp := rec.Result()
	cookies := resp.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if cookies[0].Name != "dlcsAuthSession-5" {
		t.Errorf("cookie name = %q, want dlcsAuthSession-5", cookies[0].Name)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	id, ok := m.Read(req, 5)
	if !ok || id != "abc-123" {
		t.Errorf("Read() = %q, %v; want abc-123, true", id, ok)
	}

	// Scoped per customer: another customer's read misses.
	if _, ok := m.Read(req, 6); ok {
		t.Error("Read() for other customer succeeded")
	}
}

func TestCookieManager_MalformedValue(t *testing.T) {
	m := NewCookieManager("", false, time.Hour)

	for _, value := range []string{"", "abc-123", "id=", "id=   "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: m.Name(5), Value: value})
		if _, ok := m.Read(req, 5); ok {
			t.Errorf("Read() accepted malformed value %q", value)
		}
	}
}

func TestBearerTokenManager(t *testing.T) {
	m := NewBearerTokenManager([]byte("test-secret"), "protagonist", time.Hour)
	session := &Session{ID: "sess-1", Customer: 5}

	token, err := m.Mint(session)
	if err != nil {
		t.Fatalf("Mint() error: %v", err)
	}

	id, err := m.SessionID(token, 5)
	if err != nil {
		t.Fatalf("SessionID() error: %v", err)
	}
	if id != "sess-1" {
		t.Errorf("SessionID() = %q, want sess-1", id)
	}

	if _, err := m.SessionID(token, 6); !errors.Is(err, ErrInvalidBearerToken) {
		t.Errorf("cross-customer token error = %v, want ErrInvalidBearerToken", err)
	}

	other := NewBearerTokenManager([]byte("other-secret"), "protagonist", time.Hour)
	if _, err := other.SessionID(token, 5); !errors.Is(err, ErrInvalidBearerToken) {
		t.Errorf("wrong-secret token error = %v, want ErrInvalidBearerToken", err)
	}

	if _, err := m.SessionID("not.a.jwt", 5); !errors.Is(err, ErrInvalidBearerToken) {
		t.Errorf("garbage token error = %v, want ErrInvalidBearerToken", err)
	}
}

func TestAccessChecker(t *testing.T) {
	checker, err := NewAccessChecker()
	if err != nil {
		t.Fatalf("NewAccessChecker() error: %v", err)
	}
	// staff inherits registered inherits clickthrough, for customer 5 only.
	if err := checker.AddRoleInheritance(5, "staff", "registered"); err != nil {
		t.Fatalf("AddRoleInheritance() error: %v", err)
	}
	if err := checker.AddRoleInheritance(5, "registered", "clickthrough"); err != nil {
		t.Fatalf("AddRoleInheritance() error: %v", err)
	}

	tests := []struct {
		name     string
		granted  []string
		customer int
		required []string
		want     bool
	}{
		{"exact match", []string{"clickthrough"}, 5, []string{"clickthrough"}, true},
		{"any-match across required", []string{"registered"}, 5, []string{"nope", "registered"}, true},
		{"direct inheritance", []string{"staff"}, 5, []string{"registered"}, true},
		{"transitive inheritance", []string{"staff"}, 5, []string{"clickthrough"}, true},
		{"inheritance is directional", []string{"clickthrough"}, 5, []string{"staff"}, false},
		{"hierarchy scoped per customer", []string{"staff"}, 9, []string{"clickthrough"}, false},
		{"no granted roles", nil, 5, []string{"clickthrough"}, false},
		{"empty required is open", nil, 5, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &Session{ID: "s", Customer: tt.customer, Roles: tt.granted}
			got, err := checker.CanSessionUserAccessRoles(session, tt.customer, tt.required)
			if err != nil {
				t.Fatalf("CanSessionUserAccessRoles() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanSessionUserAccessRoles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newTestValidator(t *testing.T) (*AssetAccessValidator, *SessionAuthService, *CookieManager) {
	t.Helper()
	store := newTestStore(t)
	bearer := NewBearerTokenManager([]byte("test-secret"), "protagonist", time.Hour)
	sessions := NewSessionAuthService(store, bearer, time.Hour)
	cookies := NewCookieManager("", false, time.Hour)
	checker, err := NewAccessChecker()
	if err != nil {
		t.Fatalf("NewAccessChecker() error: %v", err)
	}
	return NewAssetAccessValidator(sessions, cookies, checker), sessions, cookies
}

func TestTryValidate_OpenWithoutCredentials(t *testing.T) {
	validator, _, _ := newTestValidator(t)

	for _, mech := range []Mechanism{MechanismCookie, MechanismBearer, MechanismAll} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		got := validator.TryValidate(context.Background(), rec, req, 5, nil, mech)
		if got != ResultOpen {
			t.Errorf("TryValidate(%s, no roles) = %s, want %s", mech, got, ResultOpen)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Errorf("TryValidate(%s, no roles) set a cookie", mech)
		}
	}
}

func TestTryValidate_CookieFlow(t *testing.T) {
	validator, sessions, cookies := newTestValidator(t)
	ctx := context.Background()

	session, err := sessions.CreateSession(ctx, 5, []string{"clickthrough"})
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.Name(5), Value: "id=" + session.ID})

	got := validator.TryValidate(ctx, rec, req, 5, []string{"clickthrough"}, MechanismCookie)
	if got != ResultAuthorized {
		t.Fatalf("TryValidate() = %s, want %s", got, ResultAuthorized)
	}

	// Sliding behavior: the cookie is re-issued on success.
	refreshed := rec.Result().Cookies()
	if len(refreshed) != 1 || refreshed[0].Name != cookies.Name(5) {
		t.Errorf("expected refreshed session cookie, got %v", refreshed)
	}
}

func TestTryValidate_MissingOrInsufficientCredentials(t *testing.T) {
	validator, sessions, cookies := newTestValidator(t)
	ctx := context.Background()

	// No credentials at all.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := validator.TryValidate(ctx, rec, req, 5, []string{"clickthrough"}, MechanismAll); got != ResultUnauthorized {
		t.Errorf("TryValidate(no credentials) = %s, want %s", got, ResultUnauthorized)
	}

	// Session exists but lacks the required role.
	session, err := sessions.CreateSession(ctx, 5, []string{"clickthrough"})
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.Name(5), Value: "id=" + session.ID})
	if got := validator.TryValidate(ctx, rec, req, 5, []string{"restricted"}, MechanismCookie); got != ResultUnauthorized {
		t.Errorf("TryValidate(insufficient roles) = %s, want %s", got, ResultUnauthorized)
	}
}

func TestTryValidate_AllPrefersCookie(t *testing.T) {
	validator, sessions, cookies := newTestValidator(t)
	ctx := context.Background()

	session, err := sessions.CreateSession(ctx, 5, []string{"clickthrough"})
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	// Valid cookie plus a garbage bearer header: the cookie must win and
	// the bearer path must never be reached, or the result would be
	// Unauthorized.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.Name(5), Value: "id=" + session.ID})
	req.Header.Set("Authorization", "Bearer garbage")

	if got := validator.TryValidate(ctx, rec, req, 5, []string{"clickthrough"}, MechanismAll); got != ResultAuthorized {
		t.Errorf("TryValidate(All, valid cookie) = %s, want %s", got, ResultAuthorized)
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Error("cookie success under All did not refresh the cookie")
	}
}

func TestTryValidate_AllFallsBackToBearer(t *testing.T) {
	validator, sessions, _ := newTestValidator(t)
	ctx := context.Background()

	session, err := sessions.CreateSession(ctx, 5, []string{"clickthrough"})
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	token, err := sessions.MintBearerToken(session)
	if err != nil {
		t.Fatalf("MintBearerToken() error: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	if got := validator.TryValidate(ctx, rec, req, 5, []string{"clickthrough"}, MechanismAll); got != ResultAuthorized {
		t.Errorf("TryValidate(All, bearer only) = %s, want %s", got, ResultAuthorized)
	}
	// Bearer success never sets cookies.
	if cs := rec.Result().Cookies(); len(cs) != 0 {
		names := make([]string, 0, len(cs))
		for _, c := range cs {
			names = append(names, c.Name)
		}
		t.Errorf("bearer authorization set cookies: %s", strings.Join(names, ", "))
	}
}

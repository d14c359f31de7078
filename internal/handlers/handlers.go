// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package handlers turns inbound delivery requests into routing
// decisions. Each family handler parses the path, resolves the tracked
// asset, validates access, warms storage where the family needs it and
// emits a ProxyActionResult for the forwarder.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dlcs/protagonist-sub009/internal/assets"
	"github.com/dlcs/protagonist-sub009/internal/auth"
	"github.com/dlcs/protagonist-sub009/internal/cache"
	"github.com/dlcs/protagonist-sub009/internal/logging"
	"github.com/dlcs/protagonist-sub009/internal/orchestrator"
	"github.com/dlcs/protagonist-sub009/internal/repository"
	"github.com/dlcs/protagonist-sub009/internal/tracker"
)

// customerCacheTTL bounds how long a name-to-id resolution is reused.
const customerCacheTTL = 5 * time.Minute

// Forwarder proxies a request to the downstream named by a non-terminal
// result. Implemented by the proxy package.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, result ProxyActionResult)
}

// StatusStore reads and resets the shared orchestration flag.
type StatusStore interface {
	Get(ctx context.Context, id assets.AssetID) (assets.Status, error)
	Reset(ctx context.Context, id assets.AssetID) error
}

// RequestHandlers holds the per-family delivery handlers.
type RequestHandlers struct {
	tracker   *tracker.AssetTracker
	orch      *orchestrator.ImageOrchestrator
	validator *auth.AssetAccessValidator
	resolver  repository.CustomerResolver
	status    StatusStore
	forwarder Forwarder

	customers *cache.TTL[int]
}

// New wires the handlers.
func New(tr *tracker.AssetTracker, orch *orchestrator.ImageOrchestrator, validator *auth.AssetAccessValidator, resolver repository.CustomerResolver, status StatusStore, forwarder Forwarder) *RequestHandlers {
	return &RequestHandlers{
		tracker:   tr,
		orch:      orch,
		validator: validator,
		resolver:  resolver,
		status:    status,
		forwarder: forwarder,
		customers: cache.NewTTL[int](customerCacheTTL),
	}
}

// HandleImageRequest computes the routing decision for an /iiif-img path.
// Access validation runs before any orchestration so restricted-but-cold
// assets are rejected without storage I/O.
func (h *RequestHandlers) HandleImageRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) ProxyActionResult {
	req, id, res := h.resolve(ctx, r.URL.Path, assets.FamilyImage)
	if res != nil {
		return *res
	}

	img, err := h.tracker.GetImage(ctx, id)
	if err != nil {
		return h.lookupFailure(ctx, id, err)
	}

	if img.Restricted() {
		result := h.validator.TryValidate(ctx, w, r, id.Customer, img.RequiredRoles, auth.MechanismAll)
		if !result.Authorized() {
			return StatusResult(http.StatusUnauthorized, nil)
		}
	}

	// Open thumbnail sizes are pre-materialized; serve them without
	// touching origin storage at all.
	if !img.Restricted() && matchesOpenThumb(req.Suffix, img.OpenThumbs) {
		return ProxyTo(TargetThumbs, r.URL.Path)
	}

	if err := h.orch.OrchestrateImage(ctx, img); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("asset", id.String()).Msg("orchestration failed")
		return StatusResult(http.StatusInternalServerError, nil)
	}

	switch {
	case img.Restricted(), wantsReprocess(r):
		return ProxyTo(TargetOrchestrator, r.URL.Path)
	case isFullRegion(req.Suffix):
		return ProxyTo(TargetCachingProxy, r.URL.Path)
	default:
		return ProxyTo(TargetOrchestrator, r.URL.Path)
	}
}

// HandleTimebasedRequest computes the routing decision for an /iiif-av
// path. AV derivatives are produced at ingest time, so no warming copy
// runs here; the readiness question is only who should serve the bytes.
func (h *RequestHandlers) HandleTimebasedRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) ProxyActionResult {
	_, id, res := h.resolve(ctx, r.URL.Path, assets.FamilyTimebased)
	if res != nil {
		return *res
	}

	tb, err := h.tracker.GetTimebased(ctx, id)
	if err != nil {
		return h.lookupFailure(ctx, id, err)
	}

	if tb.Restricted() {
		result := h.validator.TryValidate(ctx, w, r, id.Customer, tb.RequiredRoles, auth.MechanismAll)
		if !result.Authorized() {
			return StatusResult(http.StatusUnauthorized, nil)
		}
	}

	if res := h.notReady(ctx, id); res != nil {
		return *res
	}

	if tb.Restricted() {
		return ProxyTo(TargetOrchestrator, r.URL.Path)
	}
	return ProxyTo(TargetCachingProxy, r.URL.Path)
}

// HandleFileRequest computes the routing decision for a /file path. File
// delivery is direct byte access from object storage, range requests
// included.
func (h *RequestHandlers) HandleFileRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) ProxyActionResult {
	_, id, res := h.resolve(ctx, r.URL.Path, assets.FamilyFile)
	if res != nil {
		return *res
	}

	f, err := h.tracker.GetFile(ctx, id)
	if err != nil {
		return h.lookupFailure(ctx, id, err)
	}

	if f.Restricted() {
		result := h.validator.TryValidate(ctx, w, r, id.Customer, f.RequiredRoles, auth.MechanismAll)
		if !result.Authorized() {
			return StatusResult(http.StatusUnauthorized, nil)
		}
	}

	if res := h.notReady(ctx, id); res != nil {
		return *res
	}

	if f.OriginLocation == "" {
		logging.Ctx(ctx).Error().Str("asset", id.String()).Msg("file asset has no origin location")
		return StatusResult(http.StatusInternalServerError, nil)
	}
	// "s3://bucket/key" becomes "bucket/key", a path-style object URL
	// under the configured storage destination.
	return ProxyTo(TargetS3, strings.TrimPrefix(f.OriginLocation, "s3://"))
}

// resolve parses the path and resolves the customer segment. A non-nil
// result is terminal.
func (h *RequestHandlers) resolve(ctx context.Context, path string, family assets.Family) (*AssetRequest, assets.AssetID, *ProxyActionResult) {
	fail := func(code int) (*AssetRequest, assets.AssetID, *ProxyActionResult) {
		res := StatusResult(code, nil)
		return nil, assets.AssetID{}, &res
	}

	req, err := ParsePath(path)
	if err != nil {
		return fail(http.StatusBadRequest)
	}
	if req.Family != family {
		return fail(http.StatusBadRequest)
	}

	customer, err := h.resolveCustomer(ctx, req.CustomerSegment)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return fail(http.StatusNotFound)
		}
		logging.Ctx(ctx).Error().Err(err).Str("customer", req.CustomerSegment).Msg("customer resolution failed")
		return fail(http.StatusInternalServerError)
	}

	id, err := buildAssetID(customer, req.Space, req.Name)
	if err != nil {
		return fail(http.StatusBadRequest)
	}
	return req, id, nil
}

func (h *RequestHandlers) resolveCustomer(ctx context.Context, segment string) (int, error) {
	if id, ok := h.customers.Get(segment); ok {
		return id, nil
	}
	id, err := h.resolver.ResolveCustomer(ctx, segment)
	if err != nil {
		return 0, err
	}
	h.customers.Set(segment, id)
	return id, nil
}

// notReady returns a terminal 503 while a re-sync is still materializing
// the asset's derivatives, so half-written output is never served. AV and
// file families read the shared status flag only; they are never warmed
// onto fast storage here. A status-store failure does not block serving.
func (h *RequestHandlers) notReady(ctx context.Context, id assets.AssetID) *ProxyActionResult {
	st, err := h.status.Get(ctx, id)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("asset", id.String()).Msg("readiness check failed")
		return nil
	}
	if st == assets.StatusOrchestrating {
		res := StatusResult(http.StatusServiceUnavailable, http.Header{"Retry-After": []string{"10"}})
		return &res
	}
	return nil
}

func (h *RequestHandlers) lookupFailure(ctx context.Context, id assets.AssetID, err error) ProxyActionResult {
	if errors.Is(err, tracker.ErrNotFound) {
		return StatusResult(http.StatusNotFound, nil)
	}
	logging.Ctx(ctx).Error().Err(err).Str("asset", id.String()).Msg("asset lookup failed")
	return StatusResult(http.StatusInternalServerError, nil)
}

// wantsReprocess reports whether the caller asked to bypass cached
// derivatives, forcing the special server.
func wantsReprocess(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Cache-Control"), "no-cache")
}

// Image is the HTTP adapter for /iiif-img routes.
func (h *RequestHandlers) Image(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, h.HandleImageRequest(r.Context(), w, r))
}

// Timebased is the HTTP adapter for /iiif-av routes.
func (h *RequestHandlers) Timebased(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, h.HandleTimebasedRequest(r.Context(), w, r))
}

// File is the HTTP adapter for /file routes.
func (h *RequestHandlers) File(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, h.HandleFileRequest(r.Context(), w, r))
}

func (h *RequestHandlers) complete(w http.ResponseWriter, r *http.Request, result ProxyActionResult) {
	if result.Terminal {
		for key, values := range result.Headers {
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}
		w.WriteHeader(result.StatusCode)
		return
	}
	h.forwarder.Forward(w, r, result)
}

// Resync clears tracked and shared state for an asset after upstream
// metadata changes. Admin-shaped endpoint, mounted behind its own route.
func (h *RequestHandlers) Resync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Reuse the delivery path shape: /resync/{customer}/{space}/{asset}.
	trimmed := strings.TrimPrefix(r.URL.Path, "/resync")
	req, err := ParsePath(PrefixImage + trimmed)
	if err != nil {
		http.Error(w, "malformed asset path", http.StatusBadRequest)
		return
	}

	customer, err := h.resolveCustomer(ctx, req.CustomerSegment)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			http.Error(w, "unknown customer", http.StatusNotFound)
			return
		}
		http.Error(w, "customer resolution failed", http.StatusInternalServerError)
		return
	}

	id, err := buildAssetID(customer, req.Space, req.Name)
	if err != nil {
		http.Error(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	h.tracker.Invalidate(id)
	if err := h.status.Reset(ctx, id); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("asset", id.String()).Msg("status reset failed")
		http.Error(w, "status reset failed", http.StatusInternalServerError)
		return
	}

	logging.Ctx(ctx).Info().Str("asset", id.String()).Msg("asset re-synced")
	w.WriteHeader(http.StatusNoContent)
}

// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package tracker resolves tracked asset views from the metadata
// repository through a short-lived cache. It is the single read path for
// handlers and the orchestrator; family-typed getters treat a family
// mismatch the same as an unknown asset so that callers never serve an
// asset through the wrong delivery pipeline.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dlcs/protagonist-sub009/internal/assets"
	"github.com/dlcs/protagonist-sub009/internal/cache"
	"github.com/dlcs/protagonist-sub009/internal/logging"
	"github.com/dlcs/protagonist-sub009/internal/metrics"
	"github.com/dlcs/protagonist-sub009/internal/repository"
)

// ErrNotFound is returned when no asset exists for the id, or when the
// stored family does not match the requested variant.
var ErrNotFound = errors.New("asset not found")

// DefaultCacheTTL bounds the staleness of tracked views. Short enough
// that metadata updates surface quickly, long enough to absorb the
// per-tile request storms IIIF viewers generate.
const DefaultCacheTTL = 30 * time.Second

// AssetTracker serves tracked asset views with read-through caching.
type AssetTracker struct {
	repo   repository.AssetRepository
	thumbs repository.ThumbRepository
	cache  *cache.TTL[*assets.OrchestrationAsset]
}

// New creates a tracker over the given repositories. thumbs may be nil
// when thumbnail metadata is unavailable; image variants then carry no
// open sizes.
func New(repo repository.AssetRepository, thumbs repository.ThumbRepository, ttl time.Duration) *AssetTracker {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &AssetTracker{
		repo:   repo,
		thumbs: thumbs,
		cache:  cache.NewTTL[*assets.OrchestrationAsset](ttl),
	}
}

// GetOrchestrationAsset returns the tracked view for the id, from cache
// when fresh.
func (t *AssetTracker) GetOrchestrationAsset(ctx context.Context, id assets.AssetID) (*assets.OrchestrationAsset, error) {
	key := id.String()
	if a, ok := t.cache.Get(key); ok {
		metrics.TrackerCacheHits.Inc()
		return a, nil
	}
	metrics.TrackerCacheMisses.Inc()

	a, err := t.repo.GetAsset(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAssetNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load asset %s: %w", id, err)
	}

	if a.Family == assets.FamilyImage && t.thumbs != nil {
		sizes, err := t.thumbs.GetOpenSizes(ctx, id)
		if err != nil {
			// Thumbnail metadata is advisory. Serve the asset without
			// open sizes rather than failing the whole lookup.
			logging.Ctx(ctx).Warn().Err(err).
				Str("asset", key).
				Msg("failed to load open thumbnail sizes")
		} else {
			a.SetOpenThumbs(sizes)
		}
	}

	t.cache.Set(key, a)
	return a, nil
}

// GetImage returns the image variant for the id. A non-image asset is
// reported as not found.
func (t *AssetTracker) GetImage(ctx context.Context, id assets.AssetID) (*assets.OrchestrationImage, error) {
	a, err := t.GetOrchestrationAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	img, ok := a.Image()
	if !ok {
		return nil, fmt.Errorf("%s is not image-family: %w", id, ErrNotFound)
	}
	return img, nil
}

// GetTimebased returns the AV variant for the id. A non-AV asset is
// reported as not found.
func (t *AssetTracker) GetTimebased(ctx context.Context, id assets.AssetID) (*assets.OrchestrationTimebased, error) {
	a, err := t.GetOrchestrationAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	tb, ok := a.Timebased()
	if !ok {
		return nil, fmt.Errorf("%s is not timebased-family: %w", id, ErrNotFound)
	}
	return tb, nil
}

// GetFile returns the file variant for the id. A non-file asset is
// reported as not found.
func (t *AssetTracker) GetFile(ctx context.Context, id assets.AssetID) (*assets.OrchestrationFile, error) {
	a, err := t.GetOrchestrationAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	f, ok := a.File()
	if !ok {
		return nil, fmt.Errorf("%s is not file-family: %w", id, ErrNotFound)
	}
	return f, nil
}

// Invalidate drops any cached view of the id. Used by the re-sync
// endpoint after upstream metadata changes.
func (t *AssetTracker) Invalidate(id assets.AssetID) {
	t.cache.Delete(id.String())
}

// Prune evicts expired entries. Called periodically by the cache
// maintenance service.
func (t *AssetTracker) Prune() int {
	return t.cache.Prune()
}

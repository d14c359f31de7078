// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package repository

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/dlcs/protagonist-sub009/internal/assets"
)

// Fake is an in-memory repository for tests and local development.
type Fake struct {
	mu        sync.RWMutex
	assets    map[string]*assets.OrchestrationAsset
	thumbs    map[string][][2]int
	customers map[string]int

	// GetAssetCalls counts repository round trips, letting cache tests
	// assert read-through behavior.
	GetAssetCalls int
}

// NewFake creates an empty fake repository.
func NewFake() *Fake {
	return &Fake{
		assets:    make(map[string]*assets.OrchestrationAsset),
		thumbs:    make(map[string][][2]int),
		customers: make(map[string]int),
	}
}

// AddAsset registers an asset.
func (f *Fake) AddAsset(a *assets.OrchestrationAsset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[a.ID.String()] = a
}

// AddThumbs registers open thumbnail sizes for an asset.
func (f *Fake) AddThumbs(id assets.AssetID, sizes [][2]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thumbs[id.String()] = sizes
}

// AddCustomer registers a customer name to id mapping.
func (f *Fake) AddCustomer(name string, id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers[name] = id
}

// GetAsset implements AssetRepository.
func (f *Fake) GetAsset(ctx context.Context, id assets.AssetID) (*assets.OrchestrationAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.GetAssetCalls++
	a, ok := f.assets[id.String()]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrAssetNotFound)
	}
	// Each caller owns its copy, matching the row-scan freshness of the
	// Postgres repository.
	return a.Clone(), nil
}

// GetOpenSizes implements ThumbRepository.
func (f *Fake) GetOpenSizes(ctx context.Context, id assets.AssetID) ([][2]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.thumbs[id.String()], nil
}

// ResolveCustomer implements CustomerResolver.
func (f *Fake) ResolveCustomer(ctx context.Context, segment string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if id, err := strconv.Atoi(segment); err == nil {
		return id, nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if id, ok := f.customers[segment]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%q: %w", segment, ErrCustomerNotFound)
}

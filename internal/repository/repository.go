// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package repository provides read access to the durable asset metadata
// written by the ingestion pipeline. The orchestrator only reads here; all
// writes happen elsewhere.
package repository

import (
	"context"
	"errors"

	"github.com/dlcs/protagonist-sub009/internal/assets"
)

var (
	// ErrAssetNotFound is returned when no metadata exists for an asset id.
	ErrAssetNotFound = errors.New("repository: asset not found")

	// ErrCustomerNotFound is returned when a customer path segment resolves
	// to no known customer.
	ErrCustomerNotFound = errors.New("repository: customer not found")
)

// AssetRepository resolves tracked-asset metadata. Every GetAsset call
// returns an instance the caller owns exclusively; implementations must
// not hand the same asset to two callers, since the tracker mutates it
// while attaching thumbnail sizes.
type AssetRepository interface {
	GetAsset(ctx context.Context, id assets.AssetID) (*assets.OrchestrationAsset, error)
}

// ThumbRepository lists thumbnail sizes already materialized for an asset.
// This is a cheaper lookup than full asset resolution and lets openly
// deliverable thumbnails bypass orchestration entirely.
type ThumbRepository interface {
	GetOpenSizes(ctx context.Context, id assets.AssetID) ([][2]int, error)
}

// CustomerResolver maps a request path segment (numeric id or customer name)
// to a customer id.
type CustomerResolver interface {
	ResolveCustomer(ctx context.Context, segment string) (int, error)
}

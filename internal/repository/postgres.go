// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dlcs/protagonist-sub009/internal/assets"
)

// Postgres implements AssetRepository, ThumbRepository and CustomerResolver
// over the shared metadata database.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs the repository over an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens a pool for the given DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// GetAsset loads the tracked view of an asset, joined with its
// family-specific details.
func (r *Postgres) GetAsset(ctx context.Context, id assets.AssetID) (*assets.OrchestrationAsset, error) {
	row := r.pool.QueryRow(ctx, `
SELECT family, channels, required_roles, origin_location,
       COALESCE(width, 0), COALESCE(height, 0),
       COALESCE(duration_ms, 0), COALESCE(media_type, '')
FROM assets
WHERE customer = $1 AND space = $2 AND name = $3;
`, id.Customer, id.Space, id.Name)

	var (
		family         string
		channels       []string
		requiredRoles  []string
		originLocation string
		width, height  int
		durationMS     int64
		mediaType      string
	)
	if err := row.Scan(&family, &channels, &requiredRoles, &originLocation,
		&width, &height, &durationMS, &mediaType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrAssetNotFound)
		}
		return nil, fmt.Errorf("query asset %s: %w", id, err)
	}

	base := assets.OrchestrationAsset{
		ID:            id,
		Channels:      channels,
		RequiredRoles: requiredRoles,
	}

	switch assets.Family(family) {
	case assets.FamilyImage:
		return assets.NewImageAsset(base, assets.ImageDetails{
			OriginLocation: originLocation,
			Width:          width,
			Height:         height,
		}), nil
	case assets.FamilyTimebased:
		return assets.NewTimebasedAsset(base, assets.TimebasedDetails{
			OriginLocation: originLocation,
			DurationMillis: durationMS,
		}), nil
	case assets.FamilyFile:
		return assets.NewFileAsset(base, assets.FileDetails{
			OriginLocation: originLocation,
			MediaType:      mediaType,
		}), nil
	default:
		return nil, fmt.Errorf("asset %s has unknown family %q", id, family)
	}
}

// GetOpenSizes lists [width, height] pairs of thumbnails already materialized
// for the asset with no access restriction.
func (r *Postgres) GetOpenSizes(ctx context.Context, id assets.AssetID) ([][2]int, error) {
	rows, err := r.pool.Query(ctx, `
SELECT width, height
FROM thumbnail_sizes
WHERE customer = $1 AND space = $2 AND name = $3 AND open
ORDER BY width DESC;
`, id.Customer, id.Space, id.Name)
	if err != nil {
		return nil, fmt.Errorf("query thumbnail sizes %s: %w", id, err)
	}
	defer rows.Close()

	var sizes [][2]int
	for rows.Next() {
		var w, h int
		if err := rows.Scan(&w, &h); err != nil {
			return nil, fmt.Errorf("scan thumbnail size: %w", err)
		}
		sizes = append(sizes, [2]int{w, h})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thumbnail sizes: %w", err)
	}
	return sizes, nil
}

// ResolveCustomer accepts a numeric customer id or a customer name.
func (r *Postgres) ResolveCustomer(ctx context.Context, segment string) (int, error) {
	if id, err := strconv.Atoi(segment); err == nil {
		return id, nil
	}

	var id int
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM customers WHERE name = $1;`, segment).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%q: %w", segment, ErrCustomerNotFound)
		}
		return 0, fmt.Errorf("resolve customer %q: %w", segment, err)
	}
	return id, nil
}

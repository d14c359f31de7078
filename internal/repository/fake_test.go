// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package repository

import (
	"context"
	"testing"

	"github.com/dlcs/protagonist-sub009/internal/assets"
)

func TestFake_GetAssetReturnsIndependentCopies(t *testing.T) {
	id := assets.AssetID{Customer: 5, Space: 2, Name: "img"}
	fake := NewFake()
	fake.AddAsset(assets.NewImageAsset(assets.OrchestrationAsset{
		ID:       id,
		Channels: []string{"iiif-img"},
	}, assets.ImageDetails{
		OriginLocation: "s3://origin/5/2/img",
	}))
	ctx := context.Background()

	a1, err := fake.GetAsset(ctx, id)
	if err != nil {
		t.Fatalf("GetAsset() error: %v", err)
	}
	a2, err := fake.GetAsset(ctx, id)
	if err != nil {
		t.Fatalf("GetAsset() error: %v", err)
	}

	if !a1.SetOpenThumbs([][2]int{{100, 100}}) {
		t.Fatal("SetOpenThumbs() reported false for image asset")
	}

	img2, ok := a2.Image()
	if !ok {
		t.Fatal("Image() reported ok=false for image asset")
	}
	if len(img2.OpenThumbs) != 0 {
		t.Errorf("mutation of one caller's asset leaked into another: %v", img2.OpenThumbs)
	}
}

// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package assets

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAssetID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    AssetID
		wantErr bool
	}{
		{"simple", "99/1/foo", AssetID{99, 1, "foo"}, false},
		{"name with slashes", "2/5/scans/page-1.jp2", AssetID{2, 5, "scans/page-1.jp2"}, false},
		{"zero ids", "0/0/x", AssetID{0, 0, "x"}, false},
		{"missing segments", "99/foo", AssetID{}, true},
		{"empty", "", AssetID{}, true},
		{"non-numeric customer", "abc/1/foo", AssetID{}, true},
		{"non-numeric space", "1/abc/foo", AssetID{}, true},
		{"negative customer", "-1/1/foo", AssetID{}, true},
		{"empty name", "1/1/", AssetID{}, true},
		{"too long", "1/1/" + strings.Repeat("a", MaxAssetIDLength), AssetID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssetID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				var invalid *InvalidAssetIDError
				if !errors.As(err, &invalid) {
					t.Fatalf("expected *InvalidAssetIDError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAssetIDRoundTrip(t *testing.T) {
	id := AssetID{Customer: 54, Space: 2, Name: "the-name"}
	parsed, err := ParseAssetID(id.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != id {
		t.Errorf("round trip mismatch: %+v != %+v", parsed, id)
	}
}

func TestVariantAccessors(t *testing.T) {
	img := NewImageAsset(
		OrchestrationAsset{ID: AssetID{1, 2, "pic"}},
		ImageDetails{OriginLocation: "s3://bucket/1/2/pic", Width: 4000, Height: 3000},
	)

	if _, ok := img.Image(); !ok {
		t.Error("expected image variant to resolve")
	}
	if _, ok := img.Timebased(); ok {
		t.Error("image asset must not resolve as timebased")
	}
	if _, ok := img.File(); ok {
		t.Error("image asset must not resolve as file")
	}

	variant, _ := img.Image()
	if variant.Width != 4000 || variant.ID.Name != "pic" {
		t.Errorf("variant fields not joined: %+v", variant)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusNotOrchestrated, StatusOrchestrating, true},
		{StatusNotOrchestrated, StatusOrchestrated, false},
		{StatusOrchestrating, StatusOrchestrated, true},
		{StatusOrchestrating, StatusNotOrchestrated, true},
		{StatusOrchestrated, StatusOrchestrating, false},
		{StatusOrchestrated, StatusNotOrchestrated, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestRestricted(t *testing.T) {
	open := &OrchestrationAsset{}
	if open.Restricted() {
		t.Error("asset without roles must be open")
	}
	locked := &OrchestrationAsset{RequiredRoles: []string{"clickthrough"}}
	if !locked.Restricted() {
		t.Error("asset with roles must be restricted")
	}
}

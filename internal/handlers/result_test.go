// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package handlers

import (
	"net/http"
	"testing"
)

func TestProxyTo(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantPath    string
		wantHasPath bool
	}{
		{"plain path", "iiif-img/5/2/foo/full/max/0/default.jpg", "iiif-img/5/2/foo/full/max/0/default.jpg", true},
		{"leading slash stripped", "/iiif-img/5/2/foo", "iiif-img/5/2/foo", true},
		{"empty path", "", "", false},
		{"whitespace only", "   ", "   ", false},
		{"bare slash", "/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProxyTo(TargetCachingProxy, tt.path)
			if got.Terminal {
				t.Error("ProxyTo() produced a terminal result")
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
			if got.HasPath != tt.wantHasPath {
				t.Errorf("HasPath = %v, want %v", got.HasPath, tt.wantHasPath)
			}
		})
	}
}

func TestStatusResult(t *testing.T) {
	headers := http.Header{"Retry-After": []string{"30"}}
	got := StatusResult(http.StatusNotFound, headers)

	if !got.Terminal {
		t.Error("StatusResult() not terminal")
	}
	if got.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", got.StatusCode)
	}
	if got.Headers.Get("Retry-After") != "30" {
		t.Error("headers not carried through")
	}
	if got.HasPath {
		t.Error("terminal result reports HasPath")
	}
}

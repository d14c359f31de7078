// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package handlers

import (
	"net/http"
	"strings"
)

// Target names the downstream a request should be proxied to.
type Target string

const (
	// TargetCachingProxy serves warm full-region image requests through
	// the caching image server.
	TargetCachingProxy Target = "caching-proxy"
	// TargetOrchestrator serves requests that need the special server,
	// typically restricted assets or reprocessing passes.
	TargetOrchestrator Target = "orchestrator"
	// TargetS3 serves direct byte access straight from object storage.
	TargetS3 Target = "s3"
	// TargetThumbs serves requests matching a pre-materialized open
	// thumbnail size.
	TargetThumbs Target = "thumbs"
	// TargetNone marks terminal results.
	TargetNone Target = ""
)

// ProxyActionResult is the routing decision for one request: either a
// downstream target with an optional rewritten path, or a terminal
// status-only response.
type ProxyActionResult struct {
	Target  Target
	Path    string
	HasPath bool

	Terminal   bool
	StatusCode int
	Headers    http.Header
}

// ProxyTo builds a non-terminal result. The path is stored without a
// leading slash; an empty or whitespace-only path yields HasPath false,
// meaning the forwarder keeps the inbound path.
func ProxyTo(target Target, path string) ProxyActionResult {
	path = strings.TrimPrefix(path, "/")
	return ProxyActionResult{
		Target:  target,
		Path:    path,
		HasPath: strings.TrimSpace(path) != "",
	}
}

// StatusResult builds a terminal result carrying only a status code and
// headers to copy through to the client.
func StatusResult(code int, headers http.Header) ProxyActionResult {
	return ProxyActionResult{
		Terminal:   true,
		StatusCode: code,
		Headers:    headers,
	}
}

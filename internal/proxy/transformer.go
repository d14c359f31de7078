// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package proxy forwards requests to downstream delivery services. The
// PathRewriteTransformer carries one routing decision onto the outbound
// request; the Forwarder drives httputil.ReverseProxy with it.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// RequestedByHeader marks proxied requests for downstream tracing.
const RequestedByHeader = "x-requested-by"

// requestedByValue identifies this service to downstreams.
const requestedByValue = "protagonist-orchestrator"

// PathRewriteTransformer rewrites one outbound request toward a
// destination root. With RewriteWholePath set, the destination's own
// path and host replace the inbound ones entirely (direct-to-S3 style);
// otherwise only scheme and host change and the stored path, when
// present, replaces the inbound path.
type PathRewriteTransformer struct {
	Destination *url.URL
	// Path is the replacement path without leading slash. Ignored when
	// HasPath is false.
	Path    string
	HasPath bool
	// RewriteWholePath uses Destination's full URI and sets the Host
	// header to the destination host.
	RewriteWholePath bool
}

// Transform applies the rewrite to an outbound proxy request.
func (t *PathRewriteTransformer) Transform(pr *httputil.ProxyRequest) {
	out := pr.Out

	if t.RewriteWholePath {
		out.URL.Scheme = t.Destination.Scheme
		out.URL.Host = t.Destination.Host
		out.URL.Path = t.Destination.Path
		if t.HasPath {
			out.URL.Path = joinPath(t.Destination.Path, t.Path)
		}
		out.Host = t.Destination.Host
	} else {
		out.URL.Scheme = t.Destination.Scheme
		out.URL.Host = t.Destination.Host
		if t.HasPath {
			out.URL.Path = joinPath(t.Destination.Path, t.Path)
		} else {
			out.URL.Path = joinPath(t.Destination.Path, strings.TrimPrefix(out.URL.Path, "/"))
		}
	}
	out.URL.RawPath = ""

	out.Header.Set(RequestedByHeader, requestedByValue)
}

// TransformResponse ensures a permissive CORS header is present without
// clobbering one the downstream already set.
func (t *PathRewriteTransformer) TransformResponse(resp *http.Response) error {
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		resp.Header.Set("Access-Control-Allow-Origin", "*")
	}
	return nil
}

func joinPath(root, path string) string {
	root = strings.TrimSuffix(root, "/")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		if root == "" {
			return "/"
		}
		return root
	}
	return root + "/" + path
}

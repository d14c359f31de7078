// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/dlcs/protagonist-sub009/internal/handlers"
	"github.com/dlcs/protagonist-sub009/internal/logging"
)

// Destinations holds the configured root URL per proxy target.
type Destinations struct {
	CachingProxy *url.URL
	Orchestrator *url.URL
	S3           *url.URL
	Thumbs       *url.URL
}

// ParseDestinations builds Destinations from raw URL strings.
func ParseDestinations(cachingProxy, orchestrator, s3, thumbs string) (*Destinations, error) {
	parse := func(name, raw string) (*url.URL, error) {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s destination %q: %w", name, raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%s destination %q needs scheme and host", name, raw)
		}
		return u, nil
	}

	d := &Destinations{}
	var err error
	if d.CachingProxy, err = parse("caching-proxy", cachingProxy); err != nil {
		return nil, err
	}
	if d.Orchestrator, err = parse("orchestrator", orchestrator); err != nil {
		return nil, err
	}
	if d.S3, err = parse("s3", s3); err != nil {
		return nil, err
	}
	if d.Thumbs, err = parse("thumbs", thumbs); err != nil {
		return nil, err
	}
	return d, nil
}

// Forwarder proxies requests to the destination a routing decision
// names. It implements handlers.Forwarder.
type Forwarder struct {
	destinations *Destinations
	transport    http.RoundTripper
}

// NewForwarder creates a forwarder. transport may be nil to use the
// default.
func NewForwarder(destinations *Destinations, transport http.RoundTripper) *Forwarder {
	return &Forwarder{destinations: destinations, transport: transport}
}

// Forward proxies the request per the routing decision.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, result handlers.ProxyActionResult) {
	destination, wholePath := f.destinationFor(result.Target)
	if destination == nil {
		logging.Ctx(r.Context()).Error().
			Str("target", string(result.Target)).
			Msg("no destination configured for proxy target")
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}

	transformer := &PathRewriteTransformer{
		Destination:      destination,
		Path:             result.Path,
		HasPath:          result.HasPath,
		RewriteWholePath: wholePath,
	}

	rp := &httputil.ReverseProxy{
		Rewrite:        transformer.Transform,
		ModifyResponse: transformer.TransformResponse,
		Transport:      f.transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.Ctx(r.Context()).Error().Err(err).
				Str("target", string(result.Target)).
				Msg("proxy to downstream failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	rp.ServeHTTP(w, r)
}

// destinationFor maps a target to its configured root. S3 destinations
// carry their own host and path, so the whole outbound URI is rewritten.
func (f *Forwarder) destinationFor(target handlers.Target) (*url.URL, bool) {
	switch target {
	case handlers.TargetCachingProxy:
		return f.destinations.CachingProxy, false
	case handlers.TargetOrchestrator:
		return f.destinations.Orchestrator, false
	case handlers.TargetS3:
		return f.destinations.S3, true
	case handlers.TargetThumbs:
		return f.destinations.Thumbs, false
	default:
		return nil, false
	}
}

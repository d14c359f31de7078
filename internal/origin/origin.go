// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package origin reads asset binaries from slow object storage. The S3
// implementation talks to any S3-compatible endpoint through minio-go; the
// breaker wrapper keeps a misbehaving origin from stalling the request path.
package origin

import (
	"context"
	"errors"
	"io"
)

// SizeUnknown is returned as the content length when the origin cannot
// declare one; callers must then copy incrementally and count bytes.
const SizeUnknown int64 = -1

// ErrNotFound is returned when the origin has no object at the given location.
var ErrNotFound = errors.New("origin: object not found")

// Reader loads an asset's original binary from slow storage. The returned
// stream must be closed by the caller; length is SizeUnknown when the origin
// does not declare it.
type Reader interface {
	LoadFromOrigin(ctx context.Context, location string) (stream io.ReadCloser, length int64, err error)
}

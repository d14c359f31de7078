// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dlcs/protagonist-sub009/internal/assets"
)

// Route prefixes per delivery family.
const (
	PrefixImage     = "iiif-img"
	PrefixTimebased = "iiif-av"
	PrefixFile      = "file"
)

// ErrMalformedPath marks structurally invalid request paths. Handlers map
// it to 400; unresolvable customers and spaces map to 404 instead.
var ErrMalformedPath = errors.New("malformed asset path")

// AssetRequest is the parsed form of an inbound delivery path.
type AssetRequest struct {
	Family assets.Family
	// CustomerSegment is the raw path segment, a numeric id or a
	// customer name, resolved later through the repository.
	CustomerSegment string
	Space           int
	Name            string
	// Suffix is the remainder after the asset name, e.g. the IIIF
	// operation "full/max/0/default.jpg". Empty for bare asset paths.
	Suffix string
}

// ParsePath splits a delivery path into its typed parts. The expected
// shape is /{prefix}/{customer}/{space}/{asset}[/suffix...].
func ParsePath(path string) (*AssetRequest, error) {
	trimmed := strings.TrimPrefix(path, "/")
	parts := strings.SplitN(trimmed, "/", 5)
	if len(parts) < 4 {
		return nil, fmt.Errorf("%w: %q has too few segments", ErrMalformedPath, path)
	}

	var family assets.Family
	switch parts[0] {
	case PrefixImage:
		family = assets.FamilyImage
	case PrefixTimebased:
		family = assets.FamilyTimebased
	case PrefixFile:
		family = assets.FamilyFile
	default:
		return nil, fmt.Errorf("%w: unknown route prefix %q", ErrMalformedPath, parts[0])
	}

	customer := strings.TrimSpace(parts[1])
	if customer == "" {
		return nil, fmt.Errorf("%w: empty customer segment", ErrMalformedPath)
	}

	space, err := strconv.Atoi(parts[2])
	if err != nil || space < 0 {
		return nil, fmt.Errorf("%w: space segment %q is not a valid id", ErrMalformedPath, parts[2])
	}

	name := parts[3]
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty asset name", ErrMalformedPath)
	}

	suffix := ""
	if len(parts) == 5 {
		suffix = parts[4]
	}

	return &AssetRequest{
		Family:          family,
		CustomerSegment: customer,
		Space:           space,
		Name:            name,
		Suffix:          suffix,
	}, nil
}

// matchesOpenThumb reports whether an IIIF image operation suffix asks
// for a full-region size that is already materialized as an open
// thumbnail. Recognized size forms: "w,h", "!w,h" and "w," (width only).
func matchesOpenThumb(suffix string, open [][2]int) bool {
	if len(open) == 0 {
		return false
	}
	parts := strings.Split(suffix, "/")
	// region/size/rotation/quality.format
	if len(parts) != 4 || parts[0] != "full" {
		return false
	}

	size := strings.TrimPrefix(parts[1], "!")
	w, h, ok := parseSize(size)
	if !ok {
		return false
	}
	for _, thumb := range open {
		if w == thumb[0] && (h == 0 || h == thumb[1]) {
			return true
		}
	}
	return false
}

func parseSize(size string) (w, h int, ok bool) {
	before, after, found := strings.Cut(size, ",")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(before)
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	if after == "" {
		return w, 0, true
	}
	h, err = strconv.Atoi(after)
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// isFullRegion reports whether the IIIF operation reads the entire image
// at its native or capped size, the case the caching proxy serves best.
func isFullRegion(suffix string) bool {
	return suffix == "" || strings.HasPrefix(suffix, "full/")
}

// buildAssetID assembles an id from resolved parts, re-validating through
// the canonical parser so length and shape rules hold in one place.
func buildAssetID(customer, space int, name string) (assets.AssetID, error) {
	return assets.ParseAssetID(fmt.Sprintf("%d/%d/%s", customer, space, name))
}

// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package assets defines the asset identity and tracked-asset model shared by
// the tracker, orchestrator, and delivery handlers.
package assets

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxAssetIDLength bounds the canonical customer/space/name form.
const MaxAssetIDLength = 220

// AssetID identifies a single deliverable asset within a customer's space.
// The canonical string form is "customer/space/name".
type AssetID struct {
	Customer int
	Space    int
	Name     string
}

// InvalidAssetIDError describes why an asset identifier could not be parsed.
type InvalidAssetIDError struct {
	Input  string
	Reason string
}

func (e *InvalidAssetIDError) Error() string {
	return fmt.Sprintf("invalid asset id %q: %s", e.Input, e.Reason)
}

// ParseAssetID parses the canonical "customer/space/name" form. It is total:
// every malformed input yields an *InvalidAssetIDError, never a panic.
func ParseAssetID(s string) (AssetID, error) {
	if len(s) > MaxAssetIDLength {
		return AssetID{}, &InvalidAssetIDError{Input: truncate(s), Reason: "exceeds maximum length"}
	}

	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 {
		return AssetID{}, &InvalidAssetIDError{Input: s, Reason: "expected customer/space/name"}
	}

	customer, err := strconv.Atoi(parts[0])
	if err != nil || customer < 0 {
		return AssetID{}, &InvalidAssetIDError{Input: s, Reason: "customer segment is not a valid id"}
	}

	space, err := strconv.Atoi(parts[1])
	if err != nil || space < 0 {
		return AssetID{}, &InvalidAssetIDError{Input: s, Reason: "space segment is not a valid id"}
	}

	if parts[2] == "" {
		return AssetID{}, &InvalidAssetIDError{Input: s, Reason: "name segment is empty"}
	}

	return AssetID{Customer: customer, Space: space, Name: parts[2]}, nil
}

// String returns the canonical "customer/space/name" form.
func (id AssetID) String() string {
	return strconv.Itoa(id.Customer) + "/" + strconv.Itoa(id.Space) + "/" + id.Name
}

// IsZero reports whether the id is the zero value.
func (id AssetID) IsZero() bool {
	return id.Customer == 0 && id.Space == 0 && id.Name == ""
}

func truncate(s string) string {
	if len(s) <= 64 {
		return s
	}
	return s[:64] + "..."
}

// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package assets

// Family is the media category of an asset. It determines which tracked
// variant applies and which delivery pipeline serves the request.
type Family string

const (
	FamilyImage     Family = "image"
	FamilyTimebased Family = "timebased"
	FamilyFile      Family = "file"
)

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	switch f {
	case FamilyImage, FamilyTimebased, FamilyFile:
		return true
	}
	return false
}

// OrchestrationAsset is the lightweight tracked view of an asset resolved
// from the metadata repository. Family-specific fields live on the variant
// payloads; the safe accessors return ok=false when the stored family does
// not match, which callers must treat as not-found.
type OrchestrationAsset struct {
	ID            AssetID
	Family        Family
	Channels      []string
	RequiredRoles []string
	Status        Status

	image     *ImageDetails
	timebased *TimebasedDetails
	file      *FileDetails
}

// ImageDetails carries the image-family fields of a tracked asset.
type ImageDetails struct {
	// OriginLocation is the slow-storage key of the original binary.
	// Empty means the metadata is out of sync with the origin system.
	OriginLocation string
	Width          int
	Height         int
	// OpenThumbs lists [width, height] pairs of thumbnails that are already
	// materialized and openly deliverable without orchestration.
	OpenThumbs [][2]int
}

// TimebasedDetails carries the AV-family fields of a tracked asset.
type TimebasedDetails struct {
	OriginLocation  string
	DurationMillis  int64
	TranscodePolicy string
}

// FileDetails carries the file-family fields of a tracked asset.
type FileDetails struct {
	OriginLocation string
	MediaType      string
}

// OrchestrationImage is an image-family tracked asset with its details joined.
type OrchestrationImage struct {
	OrchestrationAsset
	ImageDetails
}

// OrchestrationTimebased is an AV-family tracked asset with its details joined.
type OrchestrationTimebased struct {
	OrchestrationAsset
	TimebasedDetails
}

// OrchestrationFile is a file-family tracked asset with its details joined.
type OrchestrationFile struct {
	OrchestrationAsset
	FileDetails
}

// NewImageAsset builds an image-family tracked asset.
func NewImageAsset(base OrchestrationAsset, details ImageDetails) *OrchestrationAsset {
	base.Family = FamilyImage
	base.image = &details
	return &base
}

// NewTimebasedAsset builds an AV-family tracked asset.
func NewTimebasedAsset(base OrchestrationAsset, details TimebasedDetails) *OrchestrationAsset {
	base.Family = FamilyTimebased
	base.timebased = &details
	return &base
}

// NewFileAsset builds a file-family tracked asset.
func NewFileAsset(base OrchestrationAsset, details FileDetails) *OrchestrationAsset {
	base.Family = FamilyFile
	base.file = &details
	return &base
}

// Image returns the image variant, or ok=false when the asset is not
// image-family.
func (a *OrchestrationAsset) Image() (*OrchestrationImage, bool) {
	if a == nil || a.Family != FamilyImage || a.image == nil {
		return nil, false
	}
	return &OrchestrationImage{OrchestrationAsset: *a, ImageDetails: *a.image}, true
}

// Timebased returns the AV variant, or ok=false when the asset is not
// timebased-family.
func (a *OrchestrationAsset) Timebased() (*OrchestrationTimebased, bool) {
	if a == nil || a.Family != FamilyTimebased || a.timebased == nil {
		return nil, false
	}
	return &OrchestrationTimebased{OrchestrationAsset: *a, TimebasedDetails: *a.timebased}, true
}

// File returns the file variant, or ok=false when the asset is not
// file-family.
func (a *OrchestrationAsset) File() (*OrchestrationFile, bool) {
	if a == nil || a.Family != FamilyFile || a.file == nil {
		return nil, false
	}
	return &OrchestrationFile{OrchestrationAsset: *a, FileDetails: *a.file}, true
}

// SetOpenThumbs attaches materialized open thumbnail sizes to an
// image-family asset. It reports false for any other family.
func (a *OrchestrationAsset) SetOpenThumbs(sizes [][2]int) bool {
	if a == nil || a.Family != FamilyImage || a.image == nil {
		return false
	}
	a.image.OpenThumbs = sizes
	return true
}

// Clone returns a deep copy. Callers that mutate a tracked asset, for
// example to attach thumbnail sizes, must own their copy; sharing one
// instance across requests would race.
func (a *OrchestrationAsset) Clone() *OrchestrationAsset {
	if a == nil {
		return nil
	}
	c := *a
	c.Channels = append([]string(nil), a.Channels...)
	c.RequiredRoles = append([]string(nil), a.RequiredRoles...)
	if a.image != nil {
		img := *a.image
		img.OpenThumbs = append([][2]int(nil), a.image.OpenThumbs...)
		c.image = &img
	}
	if a.timebased != nil {
		tb := *a.timebased
		c.timebased = &tb
	}
	if a.file != nil {
		fd := *a.file
		c.file = &fd
	}
	return &c
}

// Restricted reports whether serving the asset requires any role.
func (a *OrchestrationAsset) Restricted() bool {
	return a != nil && len(a.RequiredRoles) > 0
}

// HasChannel reports whether the asset carries the named delivery channel.
func (a *OrchestrationAsset) HasChannel(channel string) bool {
	if a == nil {
		return false
	}
	for _, c := range a.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

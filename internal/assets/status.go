// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package assets

// Status is the warming state of an asset's binary in fast storage.
//
// Legal transitions: NotOrchestrated -> Orchestrating -> Orchestrated.
// A failed copy reverts Orchestrating -> NotOrchestrated so a later request
// can retry. Orchestrated is terminal until an external re-sync resets it.
type Status string

const (
	StatusNotOrchestrated Status = "not-orchestrated"
	StatusOrchestrating   Status = "orchestrating"
	StatusOrchestrated    Status = "orchestrated"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusNotOrchestrated, StatusOrchestrating, StatusOrchestrated:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusNotOrchestrated:
		return next == StatusOrchestrating
	case StatusOrchestrating:
		return next == StatusOrchestrated || next == StatusNotOrchestrated
	case StatusOrchestrated:
		return false
	}
	return false
}

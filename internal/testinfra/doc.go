// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package testinfra provides container-based helpers for integration
// tests. All of it is gated behind the integration build tag so that
// unit test runs never touch Docker.
package testinfra

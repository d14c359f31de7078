// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package middleware provides HTTP middleware shared by all routes:
// request-id propagation and prometheus instrumentation.
package middleware

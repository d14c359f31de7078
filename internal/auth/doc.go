// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package auth resolves caller sessions from per-customer cookies or
// bearer JWTs and decides whether a session's granted roles satisfy an
// asset's required roles. Sessions live in BadgerDB with sliding expiry;
// role inheritance is evaluated per customer through a casbin role
// hierarchy.
package auth

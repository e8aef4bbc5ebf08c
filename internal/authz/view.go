// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package authz maps caller roles to capabilities: which view of a resource
// a caller receives, and whether an endpoint action is permitted at all.
//
// View selection is an explicit per-request function of the caller's
// capability set — there is no mutable current-user state, and list and
// detail operations on the same resource type always select the same view.
package authz

import "github.com/mapcase/mapcase/internal/auth"

// Standard roles. These align with the Casbin policy in policy.csv;
// editor inherits viewer, admin inherits editor.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// ViewKind selects how a resource is represented in responses.
// The set is closed: handlers switch over it exhaustively.
type ViewKind int

const (
	// ViewReadOnlyDetails is the reduced representation for non-admin
	// callers: sensitive and internal fields omitted or replaced.
	ViewReadOnlyDetails ViewKind = iota

	// ViewFull is the complete representation, including internal fields,
	// for callers with administrative capability.
	ViewFull
)

// String returns the view name for logs.
func (v ViewKind) String() string {
	if v == ViewFull {
		return "full"
	}
	return "read_only_details"
}

// SelectView chooses the response representation for a caller. Evaluated
// per request from the explicit principal argument; callers with the admin
// role get the full view, everyone else the reduced one.
func SelectView(p auth.Principal) ViewKind {
	if p.HasRole(RoleAdmin) {
		return ViewFull
	}
	return ViewReadOnlyDetails
}

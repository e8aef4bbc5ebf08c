// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package authz

import (
	"testing"

	"github.com/mapcase/mapcase/internal/auth"
)

func TestSelectView(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		roles []string
		want  ViewKind
	}{
		{"admin gets full view", []string{RoleAdmin}, ViewFull},
		{"admin among other roles", []string{RoleViewer, RoleAdmin}, ViewFull},
		{"editor gets reduced view", []string{RoleEditor}, ViewReadOnlyDetails},
		{"viewer gets reduced view", []string{RoleViewer}, ViewReadOnlyDetails},
		{"roleless gets reduced view", nil, ViewReadOnlyDetails},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := SelectView(auth.Principal{ID: "u", Roles: tc.roles})
			if got != tc.want {
				t.Errorf("SelectView(%v) = %s, want %s", tc.roles, got, tc.want)
			}
		})
	}
}

func TestSelectView_SameForRepeatedCalls(t *testing.T) {
	t.Parallel()

	p := auth.Principal{ID: "u", Roles: []string{RoleEditor}}

	first := SelectView(p)
	for i := 0; i < 5; i++ {
		if SelectView(p) != first {
			t.Fatal("Expected view selection to be a pure function of the principal")
		}
	}
}

func TestViewKind_String(t *testing.T) {
	t.Parallel()

	if ViewFull.String() != "full" {
		t.Errorf("Expected 'full', got %q", ViewFull.String())
	}
	if ViewReadOnlyDetails.String() != "read_only_details" {
		t.Errorf("Expected 'read_only_details', got %q", ViewReadOnlyDetails.String())
	}
}

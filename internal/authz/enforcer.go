// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/mapcase/mapcase/internal/auth"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Resources and actions enforced on the HTTP surface.
const (
	ResourceRecords = "records"
	ResourceTiles   = "tiles"
	ResourceAudit   = "audit"

	ActionRead  = "read"
	ActionWrite = "write"
)

// Enforcer answers whether a principal may perform an action on a resource,
// using an embedded RBAC model with role inheritance (admin > editor > viewer).
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds the enforcer from the embedded model and policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := loadPolicyLines(e, embeddedPolicy); err != nil {
		return nil, err
	}

	return &Enforcer{enforcer: e}, nil
}

// Allowed reports whether any of the principal's roles grants the action.
// Principals with no roles are treated as viewers.
func (e *Enforcer) Allowed(p auth.Principal, resource, action string) (bool, error) {
	roles := p.Roles
	if len(roles) == 0 {
		roles = []string{RoleViewer}
	}
	for _, role := range roles {
		ok, err := e.enforcer.Enforce(role, resource, action)
		if err != nil {
			return false, fmt.Errorf("casbin enforce: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

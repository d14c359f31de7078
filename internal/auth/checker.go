// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package auth

import (
	"fmt"
	"strconv"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// roleModel defines a domain-scoped role hierarchy. Only the grouping
// relation is used: g(child, parent, customer) states that holding child
// satisfies a requirement for parent within that customer's domain.
const roleModel = `
[request_definition]
r = sub, dom, obj

[policy_definition]
p = sub, dom, obj

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, r.obj, r.dom)
`

// AccessChecker answers whether a session's granted roles satisfy an
// asset's required roles. Any-match semantics: one granted role covering
// one required role is enough.
type AccessChecker struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAccessChecker creates a checker with an empty role hierarchy.
// Without inheritance rules, only exact role matches authorize.
func NewAccessChecker() (*AccessChecker, error) {
	m, err := model.NewModelFromString(roleModel)
	if err != nil {
		return nil, fmt.Errorf("load role model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create role enforcer: %w", err)
	}
	return &AccessChecker{enforcer: enforcer}, nil
}

// AddRoleInheritance records that, for the given customer, holding role
// satisfies requirements for inherits (transitively).
func (c *AccessChecker) AddRoleInheritance(customer int, role, inherits string) error {
	_, err := c.enforcer.AddNamedGroupingPolicy("g", role, inherits, strconv.Itoa(customer))
	if err != nil {
		return fmt.Errorf("add role inheritance %s->%s: %w", role, inherits, err)
	}
	return nil
}

// CanSessionUserAccessRoles reports whether any granted role satisfies
// any required role for the customer, directly or through inheritance.
// An empty required list always passes; an empty granted list never does.
func (c *AccessChecker) CanSessionUserAccessRoles(session *Session, customer int, required []string) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}
	if session == nil || len(session.Roles) == 0 {
		return false, nil
	}

	domain := strconv.Itoa(customer)
	rm := c.enforcer.GetRoleManager()
	for _, granted := range session.Roles {
		for _, req := range required {
			if granted == req {
				return true, nil
			}
			linked, err := rm.HasLink(granted, req, domain)
			if err != nil {
				return false, fmt.Errorf("resolve role link %s->%s: %w", granted, req, err)
			}
			if linked {
				return true, nil
			}
		}
	}
	return false, nil
}

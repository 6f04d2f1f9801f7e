// Package authz decides which roles may perform which actions, backed by a
// Casbin enforcer with an embedded model and an in-memory policy.
package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/homeowner/portal/internal/core/domain"
)

//go:embed model.conf
var modelContent string

// Resources guarded by the enforcer.
const (
	ResourceAdminConsole = "admin"
	ResourceUsersAPI     = "api/users"
	ResourceDashboard    = "dashboard"
	ResourceProfile      = "profile"
)

// Actions.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// DefaultPolicy is the role/resource/action table the portal ships with.
var DefaultPolicy = [][]string{
	{domain.RoleAdmin, ResourceAdminConsole, "*"},
	{domain.RoleAdmin, ResourceUsersAPI, "*"},
	{domain.RoleAdmin, ResourceDashboard, ActionRead},
	{domain.RoleAdmin, ResourceProfile, ActionRead},
	{domain.RoleStaff, ResourceDashboard, ActionRead},
	{domain.RoleStaff, ResourceProfile, ActionRead},
	{domain.RoleHomeOwner, ResourceDashboard, ActionRead},
	{domain.RoleHomeOwner, ResourceProfile, ActionRead},
}

// Enforcer answers role-based access questions.
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer builds an enforcer loaded with policy. A nil policy loads
// DefaultPolicy.
func NewEnforcer(policy [][]string) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if policy == nil {
		policy = DefaultPolicy
	}
	if _, err := e.AddPolicies(policy); err != nil {
		return nil, fmt.Errorf("load casbin policy: %w", err)
	}

	return &Enforcer{e: e}, nil
}

// Allowed reports whether any of roles may perform action on resource.
func (a *Enforcer) Allowed(roles []string, resource, action string) (bool, error) {
	for _, role := range roles {
		ok, err := a.e.Enforce(role, resource, action)
		if err != nil {
			return false, fmt.Errorf("enforce %s %s %s: %w", role, resource, action, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

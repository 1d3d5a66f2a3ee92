package authz

import (
	"fmt"

	"github.com/sela-fruits/sela-store/internal/constants"
)

// RoleSeed builtin role definition
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds staff role matrix
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.StaffRoleDispatcher,
			Policies: []Policy{
				{Object: "/admin/orders", Action: "GET"},
				{Object: "/admin/orders/:id", Action: "GET"},
				{Object: "/admin/orders/:id/status", Action: "PATCH"},
			},
		},
		{
			Role: constants.StaffRoleMerchandiser,
			Policies: []Policy{
				{Object: "/admin/flash-sales", Action: "POST"},
				{Object: "/admin/flash-sales/:id/disable", Action: "PATCH"},
				{Object: "/admin/promotions", Action: "POST"},
				{Object: "/admin/promotions/:id/active", Action: "PATCH"},
			},
		},
		{
			Role:     constants.StaffRoleOwner,
			Inherits: []string{constants.StaffRoleDispatcher, constants.StaffRoleMerchandiser},
		},
	}
}

// BootstrapBuiltinRoles seeds builtin roles and policies, safe to call on every start
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}

package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// School is a tenant. Only the fields the role subsystem reads are modelled.
type School struct {
	ID         string
	Name       string
	RoleConfig RoleConfig
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoleConfig lists the standard roles a school has switched on and the custom roles it defined.
// A role appears in at most one of the two lists.
type RoleConfig struct {
	EnabledRoles []Role `json:"enabledRoles"`
	CustomRoles  []Role `json:"customRoles"`
}

var ErrInvalidRoleConfig = errors.New("invalid role config")

// Validate enforces the invariants persisted role configs must hold.
func (rc RoleConfig) Validate() error {
	seen := make(map[Role]string, len(rc.EnabledRoles)+len(rc.CustomRoles))
	for _, r := range rc.EnabledRoles {
		if !IsStandardRole(r) {
			return fmt.Errorf("%w: %q is not a standard role", ErrInvalidRoleConfig, r)
		}
		if _, dup := seen[r]; dup {
			return fmt.Errorf("%w: duplicate enabled role %q", ErrInvalidRoleConfig, r)
		}
		seen[r] = "enabled"
	}
	for _, r := range rc.CustomRoles {
		if strings.TrimSpace(r) == "" || r != strings.TrimSpace(r) {
			return fmt.Errorf("%w: custom role %q is blank or untrimmed", ErrInvalidRoleConfig, r)
		}
		if IsStandardRole(r) {
			return fmt.Errorf("%w: custom role %q uses a standard role name", ErrInvalidRoleConfig, r)
		}
		if list, dup := seen[r]; dup {
			return fmt.Errorf("%w: role %q already listed as %s", ErrInvalidRoleConfig, r, list)
		}
		seen[r] = "custom"
	}
	return nil
}

// Normalize replaces nil lists with empty ones so the JSON form is always two arrays.
func (rc RoleConfig) Normalize() RoleConfig {
	if rc.EnabledRoles == nil {
		rc.EnabledRoles = []Role{}
	}
	if rc.CustomRoles == nil {
		rc.CustomRoles = []Role{}
	}
	return rc
}

func (rc RoleConfig) IsEnabled(r Role) bool { return containsRole(rc.EnabledRoles, r) }

func (rc RoleConfig) IsCustom(r Role) bool { return containsRole(rc.CustomRoles, r) }

// HasRole reports whether r is enabled or custom for the school.
func (rc RoleConfig) HasRole(r Role) bool { return rc.IsEnabled(r) || rc.IsCustom(r) }

// AllRoles returns enabled roles followed by custom roles.
func (rc RoleConfig) AllRoles() []Role {
	out := make([]Role, 0, len(rc.EnabledRoles)+len(rc.CustomRoles))
	out = append(out, rc.EnabledRoles...)
	out = append(out, rc.CustomRoles...)
	return out
}

// WithoutCustomRole returns a copy with r removed from the custom list.
func (rc RoleConfig) WithoutCustomRole(r Role) RoleConfig {
	custom := make([]Role, 0, len(rc.CustomRoles))
	for _, c := range rc.CustomRoles {
		if c != r {
			custom = append(custom, c)
		}
	}
	return RoleConfig{EnabledRoles: append([]Role{}, rc.EnabledRoles...), CustomRoles: custom}
}

// WithCustomRole returns a copy with r appended to the custom list.
func (rc RoleConfig) WithCustomRole(r Role) RoleConfig {
	return RoleConfig{
		EnabledRoles: append([]Role{}, rc.EnabledRoles...),
		CustomRoles:  append(append([]Role{}, rc.CustomRoles...), r),
	}
}

func containsRole(list []Role, r Role) bool {
	for _, x := range list {
		if x == r {
			return true
		}
	}
	return false
}

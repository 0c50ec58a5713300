package entity

import "time"

type RoleEventType string

const (
	RoleEventPermissionsUpdated RoleEventType = "role.permissions_updated"
	RoleEventCustomCreated      RoleEventType = "role.custom_created"
	RoleEventCustomDeleted      RoleEventType = "role.custom_deleted"
	RoleEventEnabledUpdated     RoleEventType = "role.enabled_updated"
)

// RoleEvent describes a committed change to a school's role configuration.
type RoleEvent struct {
	ID          string        `json:"id"`
	Type        RoleEventType `json:"type"`
	SchoolID    string        `json:"school_id"`
	Role        Role          `json:"role,omitempty"`
	Roles       []Role        `json:"roles,omitempty"`
	Permissions []Permission  `json:"permissions,omitempty"`
	ActorUserID string        `json:"actor_user_id,omitempty"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

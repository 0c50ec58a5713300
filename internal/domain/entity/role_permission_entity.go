package entity

import "time"

// RolePermission is the stored permission set of one role in one school.
// There is at most one record per (SchoolID, Role).
type RolePermission struct {
	ID          string
	SchoolID    string
	Role        Role
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

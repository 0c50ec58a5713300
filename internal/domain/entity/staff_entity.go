package entity

import "time"

type StaffStatus string

const (
	StaffActive     StaffStatus = "ACTIVE"
	StaffInactive   StaffStatus = "INACTIVE"
	StaffOnLeave    StaffStatus = "ON_LEAVE"
	StaffTerminated StaffStatus = "TERMINATED"
)

// Staff binds a user to a school with a role.
type Staff struct {
	ID        string
	UserID    string
	SchoolID  string
	Role      Role
	Status    StaffStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

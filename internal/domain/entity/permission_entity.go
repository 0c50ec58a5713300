package entity

import (
	"sort"
	"strings"
)

// Permission is a capability tag. The string value is the wire and storage form.
type Permission string

const (
	PermViewStudents  Permission = "view_students"
	PermAddStudent    Permission = "add_student"
	PermEditStudent   Permission = "edit_student"
	PermDeleteStudent Permission = "delete_student"

	PermViewStaff   Permission = "view_staff"
	PermAddStaff    Permission = "add_staff"
	PermEditStaff   Permission = "edit_staff"
	PermDeleteStaff Permission = "delete_staff"

	PermViewFees   Permission = "view_fees"
	PermAddFee     Permission = "add_fee"
	PermEditFee    Permission = "edit_fee"
	PermDeleteFee  Permission = "delete_fee"
	PermCollectFee Permission = "collect_fee"

	PermViewClasses   Permission = "view_classes"
	PermManageClasses Permission = "manage_classes"

	PermViewSubjects   Permission = "view_subjects"
	PermManageSubjects Permission = "manage_subjects"

	PermViewAttendance Permission = "view_attendance"
	PermMarkAttendance Permission = "mark_attendance"

	PermViewExams   Permission = "view_exams"
	PermManageExams Permission = "manage_exams"
	PermEnterMarks  Permission = "enter_marks"

	PermViewReports     Permission = "view_reports"
	PermGenerateReports Permission = "generate_reports"

	PermManageSettings Permission = "manage_settings"
	PermManageRoles    Permission = "manage_roles"
)

var allPermissions = []Permission{
	PermViewStudents, PermAddStudent, PermEditStudent, PermDeleteStudent,
	PermViewStaff, PermAddStaff, PermEditStaff, PermDeleteStaff,
	PermViewFees, PermAddFee, PermEditFee, PermDeleteFee, PermCollectFee,
	PermViewClasses, PermManageClasses,
	PermViewSubjects, PermManageSubjects,
	PermViewAttendance, PermMarkAttendance,
	PermViewExams, PermManageExams, PermEnterMarks,
	PermViewReports, PermGenerateReports,
	PermManageSettings, PermManageRoles,
}

var permissionSet = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(allPermissions))
	for _, p := range allPermissions {
		m[p] = struct{}{}
	}
	return m
}()

// AllPermissions returns every known permission in catalogue order.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

func (p Permission) Valid() bool {
	_, ok := permissionSet[p]
	return ok
}

func (p Permission) String() string { return string(p) }

// ParsePermission accepts surrounding whitespace and any letter case.
func ParsePermission(s string) (Permission, bool) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// ParsePermissions normalizes raw input into a deduplicated set in input order.
// invalid lists the raw entries that are not permissions, in input order.
func ParsePermissions(raw []string) (perms []Permission, invalid []string) {
	perms = make([]Permission, 0, len(raw))
	seen := make(map[Permission]struct{}, len(raw))
	for _, s := range raw {
		p, ok := ParsePermission(s)
		if !ok {
			invalid = append(invalid, s)
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}
	return perms, invalid
}

// NormalizePermissions removes duplicates and sorts, producing the stored form of a set.
func NormalizePermissions(perms []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ContainsPermission reports whether p is in perms.
func ContainsPermission(perms []Permission, p Permission) bool {
	for _, x := range perms {
		if x == p {
			return true
		}
	}
	return false
}

func PermissionStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

package entity

// Role is either a standard role or a school-defined custom role name.
type Role = string

const (
	RoleAdmin     Role = "ADMIN"
	RolePrincipal Role = "PRINCIPAL"
	RoleTeacher   Role = "TEACHER"
	RoleStudent   Role = "STUDENT"
)

var standardRoles = []Role{RoleAdmin, RolePrincipal, RoleTeacher, RoleStudent}

// StandardRoles returns the built-in roles in their canonical order.
func StandardRoles() []Role {
	out := make([]Role, len(standardRoles))
	copy(out, standardRoles)
	return out
}

func IsStandardRole(r Role) bool {
	for _, s := range standardRoles {
		if s == r {
			return true
		}
	}
	return false
}

// DefaultRolePermissions is the permission set seeded when a standard role is enabled.
var DefaultRolePermissions = map[Role][]Permission{
	RoleAdmin: allPermissions,
	RolePrincipal: {
		PermViewStudents, PermAddStudent, PermEditStudent,
		PermViewStaff, PermAddStaff, PermEditStaff,
		PermViewFees, PermAddFee, PermEditFee, PermCollectFee,
		PermViewClasses, PermManageClasses,
		PermViewSubjects, PermManageSubjects,
		PermViewAttendance, PermMarkAttendance,
		PermViewExams, PermManageExams,
		PermViewReports, PermGenerateReports,
		PermManageSettings,
	},
	RoleTeacher: {
		PermViewStudents,
		PermViewClasses,
		PermViewSubjects,
		PermViewAttendance, PermMarkAttendance,
		PermViewExams, PermEnterMarks,
		PermViewReports,
	},
	RoleStudent: {
		PermViewFees,
	},
}

// DefaultPermissionsFor returns a copy of the default set of a standard role, or nil.
func DefaultPermissionsFor(r Role) []Permission {
	d, ok := DefaultRolePermissions[r]
	if !ok {
		return nil
	}
	out := make([]Permission, len(d))
	copy(out, d)
	return out
}

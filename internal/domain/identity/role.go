package identity

// Role is the single role a user holds inside an organization
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleChiefHeadTeacher Role = "CHIEF_HEAD_TEACHER"
	RoleHeadTeacher      Role = "HEAD_TEACHER"
	RoleTeacher          Role = "TEACHER"
	RoleAccountant       Role = "ACCOUNTANT"
	RoleOfficeStaff      Role = "OFFICE_STAFF"
	RoleStudent          Role = "STUDENT"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleChiefHeadTeacher, RoleHeadTeacher, RoleTeacher,
		RoleAccountant, RoleOfficeStaff, RoleStudent:
		return true
	}
	return false
}

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

// IsStaff reports whether the role belongs to a staff member
func (r Role) IsStaff() bool {
	return r.IsValid() && r != RoleStudent
}

// SeesAllBranches reports whether the role is organization-wide.
// Every other role is confined to its own branch.
func (r Role) SeesAllBranches() bool {
	return r == RoleAdmin || r == RoleChiefHeadTeacher || r == RoleAccountant
}

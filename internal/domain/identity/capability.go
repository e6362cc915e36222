package identity

import "sort"

// Capability is a permission code of the form "resource:action"
type Capability string

const (
	CapStudentsView         Capability = "students:view"
	CapStudentsManage       Capability = "students:manage"
	CapStaffManage          Capability = "staff:manage"
	CapFeesView             Capability = "fees:view"
	CapFeesManage           Capability = "fees:manage"
	CapFeesCollect          Capability = "fees:collect"
	CapFeesRunBatch         Capability = "fees:run_batch"
	CapAttendanceMark       Capability = "attendance:mark"
	CapSettingsManage       Capability = "settings:manage"
	CapRegistrationsApprove Capability = "registrations:approve"
	CapAcademicYearsManage  Capability = "academic_years:manage"
	CapAssignmentsManage    Capability = "assignments:manage"
)

// CapabilitySet is an immutable set of capabilities
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether the set contains c
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// HasAny reports whether the set contains at least one of caps
func (s CapabilitySet) HasAny(caps ...Capability) bool {
	for _, c := range caps {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// Codes returns the capability codes in sorted order, for token claims
func (s CapabilitySet) Codes() []string {
	codes := make([]string, 0, len(s))
	for c := range s {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)
	return codes
}

// roleCapabilities is evaluated once at init; every permission check in the
// service looks capabilities up here instead of comparing role names.
var roleCapabilities = map[Role]CapabilitySet{
	RoleAdmin: NewCapabilitySet(
		CapStudentsView, CapStudentsManage, CapStaffManage,
		CapFeesView, CapFeesManage, CapFeesCollect, CapFeesRunBatch,
		CapAttendanceMark, CapSettingsManage, CapRegistrationsApprove,
		CapAcademicYearsManage, CapAssignmentsManage,
	),
	RoleChiefHeadTeacher: NewCapabilitySet(
		CapStudentsView, CapStudentsManage, CapStaffManage,
		CapFeesView, CapFeesManage, CapFeesCollect, CapFeesRunBatch,
		CapAttendanceMark, CapSettingsManage, CapRegistrationsApprove,
		CapAcademicYearsManage, CapAssignmentsManage,
	),
	RoleHeadTeacher: NewCapabilitySet(
		CapStudentsView, CapStudentsManage, CapStaffManage,
		CapFeesView, CapFeesManage, CapFeesCollect,
		CapAttendanceMark, CapRegistrationsApprove, CapAssignmentsManage,
	),
	RoleTeacher: NewCapabilitySet(
		CapStudentsView, CapAttendanceMark,
	),
	RoleAccountant: NewCapabilitySet(
		CapFeesView, CapFeesManage, CapFeesCollect, CapFeesRunBatch,
	),
	RoleOfficeStaff: NewCapabilitySet(
		CapStudentsView, CapFeesView,
	),
	RoleStudent: NewCapabilitySet(),
}

// RoleCapabilities returns the capability set granted to role.
// Unknown roles get an empty set.
func RoleCapabilities(role Role) CapabilitySet {
	if s, ok := roleCapabilities[role]; ok {
		return s
	}
	return CapabilitySet{}
}

// Can reports whether role grants c
func Can(role Role, c Capability) bool {
	return RoleCapabilities(role).Has(c)
}

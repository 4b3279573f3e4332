package enums

import "fmt"

// MemberRole represents the permissions role carried on an access token.
type MemberRole string

const (
	MemberRoleAdmin     MemberRole = "admin"
	MemberRoleStaff     MemberRole = "staff"
	MemberRoleVolunteer MemberRole = "volunteer"
	MemberRoleClient    MemberRole = "client"
)

var validMemberRoles = []MemberRole{
	MemberRoleAdmin,
	MemberRoleStaff,
	MemberRoleVolunteer,
	MemberRoleClient,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the role may administer inventory and availability.
func (m MemberRole) IsPrivileged() bool {
	return m == MemberRoleAdmin || m == MemberRoleStaff
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}

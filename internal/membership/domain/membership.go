package domain

import "time"

// Membership links a user to an organization with a role. At most one exists per (organization, user).
type Membership struct {
	OrganizationID string
	UserID         int64
	Role           Role
	Status         Status
	JoinedAt       time.Time
}

type Role string

const (
	RoleUser     Role = "User"
	RoleApprover Role = "Approver"
	RoleOrgAdmin Role = "OrgAdmin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleApprover, RoleOrgAdmin:
		return true
	}
	return false
}

// rank orders roles for "at least" checks.
func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleApprover:
		return 2
	case RoleOrgAdmin:
		return 3
	}
	return 0
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r.rank() > 0 && r.rank() >= min.rank()
}

type Status string

const (
	StatusActive    Status = "Active"
	StatusInvited   Status = "Invited"
	StatusSuspended Status = "Suspended"
	StatusRemoved   Status = "Removed"
)

// IsActive reports whether the membership allows its user to authenticate into the organization.
func (m *Membership) IsActive() bool {
	return m != nil && m.Status == StatusActive && m.Role.Valid()
}

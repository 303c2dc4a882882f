package service

import (
	"context"
	"errors"
	"strings"

	membershipdomain "room-booking/backend/internal/membership/domain"
	orgdomain "room-booking/backend/internal/organization/domain"
	"room-booking/backend/internal/tenant"
	userdomain "room-booking/backend/internal/user/domain"
)

// UserRepo is the minimal user repository needed by the verifier.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*userdomain.User, error)
}

// OrgRepo is the minimal organization repository needed by the verifier.
type OrgRepo interface {
	GetByID(ctx context.Context, id string) (*orgdomain.Organization, error)
}

// MembershipRepo is the minimal membership repository needed by the verifier.
type MembershipRepo interface {
	IsActiveMember(ctx context.Context, orgID string, userID int64) (membershipdomain.Role, bool, error)
}

// PasswordVerifier checks a password against a stored digest. DummyDigest must be computed once per process.
type PasswordVerifier interface {
	Verify(password []byte, digest string) bool
	DummyDigest() string
}

// Principal is an authenticated user, with the active membership when the scope is an organization.
type Principal struct {
	User       *userdomain.User
	Membership *membershipdomain.Membership
}

// Denial reasons. They are logged and emitted, never returned to callers.
const (
	reasonUnknownUser        = "unknown_user"
	reasonBadPassword        = "bad_password"
	reasonOrgInactive        = "org_inactive"
	reasonMembershipInactive = "membership_inactive"
	reasonNotPlatformAdmin   = "not_platform_admin"
	reasonUserGone           = "user_gone"
)

// denial is an authentication failure that remembers why. Its message is the same for every reason.
type denial struct {
	sentinel error
	reason   string
}

func (d *denial) Error() string { return d.sentinel.Error() }
func (d *denial) Unwrap() error { return d.sentinel }

func deny(reason string) error { return &denial{sentinel: ErrInvalidCredentials, reason: reason} }

// reasonOf returns the internal reason carried by err, or "" when there is none.
func reasonOf(err error) string {
	var d *denial
	if errors.As(err, &d) {
		return d.reason
	}
	return ""
}

// Verifier authenticates a login identifier and password for a scope. It never writes.
type Verifier struct {
	users     UserRepo
	orgs      OrgRepo
	members   MembershipRepo
	passwords PasswordVerifier
}

// NewVerifier returns a Verifier with the given dependencies.
func NewVerifier(users UserRepo, orgs OrgRepo, members MembershipRepo, passwords PasswordVerifier) *Verifier {
	return &Verifier{users: users, orgs: orgs, members: members, passwords: passwords}
}

// Verify returns the principal for identifier (username or email) and password in scope.
// Unknown users are checked against the dummy digest so they cost the same as a wrong password.
// Every authentication failure is ErrInvalidCredentials; other errors are store failures.
func (v *Verifier) Verify(ctx context.Context, identifier, password string, scope tenant.Scope) (*Principal, error) {
	identifier = strings.TrimSpace(identifier)
	var user *userdomain.User
	if identifier != "" {
		u, err := v.users.GetByUsernameOrEmail(ctx, identifier)
		if err != nil {
			return nil, err
		}
		user = u
	}
	if user == nil {
		v.passwords.Verify([]byte(password), v.passwords.DummyDigest())
		return nil, deny(reasonUnknownUser)
	}
	// The digest is always compared, even for an empty password, so every failure costs one hash check.
	ok := v.passwords.Verify([]byte(password), user.PasswordHash)
	if !ok || password == "" {
		return nil, deny(reasonBadPassword)
	}
	return v.authorize(ctx, user, scope)
}

// Authorize reloads userID and re-checks that it may hold a session in scope.
// Used on refresh so a suspended membership or deactivated organization blocks renewal.
func (v *Verifier) Authorize(ctx context.Context, userID int64, scope tenant.Scope) (*Principal, error) {
	user, err := v.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, deny(reasonUserGone)
	}
	return v.authorize(ctx, user, scope)
}

func (v *Verifier) authorize(ctx context.Context, user *userdomain.User, scope tenant.Scope) (*Principal, error) {
	p := &Principal{User: user}
	switch scope.Kind {
	case tenant.KindPlatform:
		if !user.IsPlatformAdmin {
			return nil, deny(reasonNotPlatformAdmin)
		}
	case tenant.KindOrganization:
		org, err := v.orgs.GetByID(ctx, scope.OrganizationID)
		if err != nil {
			return nil, err
		}
		if org == nil || !org.Active {
			return nil, deny(reasonOrgInactive)
		}
		role, active, err := v.members.IsActiveMember(ctx, org.ID, user.ID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, deny(reasonMembershipInactive)
		}
		p.Membership = &membershipdomain.Membership{
			OrganizationID: org.ID,
			UserID:         user.ID,
			Role:           role,
			Status:         membershipdomain.StatusActive,
		}
	}
	return p, nil
}

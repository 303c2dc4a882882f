package service

import (
	"errors"
	"strconv"
	"time"

	"room-booking/backend/internal/security"
	"room-booking/backend/internal/tenant"
)

var errIncompletePrincipal = errors.New("claims: principal does not match scope")

// BuildClaims derives the access token claims for p in scope. Subject is the decimal user id and the jti
// is fresh on every call. Exactly one scope section is filled: org id and role, the platform marker,
// or the legacy role.
func BuildClaims(p Principal, scope tenant.Scope, now time.Time) (security.ClaimSet, error) {
	if p.User == nil || p.User.ID <= 0 {
		return security.ClaimSet{}, errIncompletePrincipal
	}
	cs := security.ClaimSet{
		Subject:  strconv.FormatInt(p.User.ID, 10),
		JTI:      security.NewJTI(),
		IssuedAt: now.UTC(),
	}
	switch scope.Kind {
	case tenant.KindOrganization:
		if p.Membership == nil || p.Membership.OrganizationID != scope.OrganizationID {
			return security.ClaimSet{}, errIncompletePrincipal
		}
		cs.OrgID = scope.OrganizationID
		cs.OrgRole = string(p.Membership.Role)
	case tenant.KindPlatform:
		if !p.User.IsPlatformAdmin {
			return security.ClaimSet{}, errIncompletePrincipal
		}
		cs.IsPlatformAdmin = true
	default:
		cs.Role = string(p.User.Role)
	}
	return cs, nil
}

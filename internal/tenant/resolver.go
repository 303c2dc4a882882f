package tenant

import (
	"context"
	"errors"
	"net"
	"strings"

	orgdomain "room-booking/backend/internal/organization/domain"
)

// ErrUnknownTenant is returned when a host names an organization that does not exist or is inactive.
var ErrUnknownTenant = errors.New("tenant: unknown or inactive organization")

// OrgLookup is the organization lookup the resolver needs.
type OrgLookup interface {
	GetBySlug(ctx context.Context, slug string) (*orgdomain.Organization, error)
}

// Resolver maps a request host (and optional organization header) to a tenant Context.
//
//	admin.<base>  -> platform
//	<slug>.<base> -> organization looked up by slug
//	<base>, other -> legacy
type Resolver struct {
	orgs              OrgLookup
	baseDomain        string
	platformSubdomain string
}

// NewResolver returns a Resolver for hosts under baseDomain.
func NewResolver(orgs OrgLookup, baseDomain, platformSubdomain string) *Resolver {
	return &Resolver{
		orgs:              orgs,
		baseDomain:        strings.ToLower(strings.Trim(baseDomain, ".")),
		platformSubdomain: strings.ToLower(platformSubdomain),
	}
}

// Resolve returns the tenant context for host. A non-empty headerOrg is an explicit organization id
// and wins over the host; its existence is checked at authentication time, not here.
func (r *Resolver) Resolve(ctx context.Context, host, headerOrg string) (Context, error) {
	if id := strings.TrimSpace(headerOrg); id != "" {
		return Context{OrganizationID: id}, nil
	}
	label := r.subdomain(host)
	switch {
	case label == "":
		return Context{}, nil
	case label == r.platformSubdomain:
		return Context{IsPlatformScope: true}, nil
	case !orgdomain.ValidSlug(label):
		return Context{}, ErrUnknownTenant
	}
	org, err := r.orgs.GetBySlug(ctx, label)
	if err != nil {
		return Context{}, err
	}
	if org == nil || !org.Active {
		return Context{}, ErrUnknownTenant
	}
	return Context{OrganizationID: org.ID}, nil
}

// subdomain returns the part of host before ".<base>", or "" when host is the base itself or outside it.
func (r *Resolver) subdomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || host == r.baseDomain {
		return ""
	}
	label, ok := strings.CutSuffix(host, "."+r.baseDomain)
	if !ok {
		return ""
	}
	return label
}

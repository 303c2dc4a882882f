// Package tenant carries the per-request tenant context and the authentication scope derived from it.
package tenant

import "context"

// Kind tags which authentication surface a Scope selects.
type Kind int

const (
	KindLegacy Kind = iota
	KindPlatform
	KindOrganization
)

func (k Kind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindOrganization:
		return "organization"
	default:
		return "legacy"
	}
}

// Scope is Legacy, Platform or Organization(id). OrganizationID is set only for KindOrganization.
type Scope struct {
	Kind           Kind
	OrganizationID string
}

// Legacy returns the single-tenant scope.
func Legacy() Scope { return Scope{Kind: KindLegacy} }

// Platform returns the platform-administration scope.
func Platform() Scope { return Scope{Kind: KindPlatform} }

// Organization returns the scope bound to orgID. A blank id yields Legacy.
func Organization(orgID string) Scope {
	if orgID == "" {
		return Legacy()
	}
	return Scope{Kind: KindOrganization, OrganizationID: orgID}
}

func (s Scope) String() string {
	if s.Kind == KindOrganization {
		return "organization:" + s.OrganizationID
	}
	return s.Kind.String()
}

// Context is the immutable tenant information resolved for one request.
type Context struct {
	OrganizationID  string
	IsPlatformScope bool
}

// Scope derives the authentication scope. Platform wins over an organization id.
func (c Context) Scope() Scope {
	if c.IsPlatformScope {
		return Platform()
	}
	return Organization(c.OrganizationID)
}

type contextKey struct{}

// WithContext returns ctx carrying tc.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext returns the tenant context set by WithContext and true; otherwise the zero Context and false.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	return tc, ok
}

// ScopeFromContext returns the scope of the request's tenant context, Legacy when none was resolved.
func ScopeFromContext(ctx context.Context) Scope {
	tc, _ := FromContext(ctx)
	return tc.Scope()
}

// Package service implements credential verification, claim derivation and the session orchestrator
// (login, refresh, logout and access token validation).
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"room-booking/backend/internal/observability/logger"
	refreshdomain "room-booking/backend/internal/refreshtoken/domain"
	refreshservice "room-booking/backend/internal/refreshtoken/service"
	"room-booking/backend/internal/security"
	"room-booking/backend/internal/telemetry"
	"room-booking/backend/internal/tenant"
	userdomain "room-booking/backend/internal/user/domain"
)

// Sentinel errors for the auth service. Every authentication failure wraps ErrAuthenticationFailed
// and carries no detail about which check failed.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid credentials", ErrAuthenticationFailed)
	ErrInvalidRefreshToken  = fmt.Errorf("%w: invalid refresh token", ErrAuthenticationFailed)
	ErrInvalidAccessToken   = fmt.Errorf("%w: invalid access token", ErrAuthenticationFailed)
	// ErrMalformedInput is returned for structurally invalid input, before any store access.
	ErrMalformedInput = errors.New("malformed input")
)

const tracerName = "room-booking/auth"

// Session is what Login and Refresh hand back. Secrets appear only here.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *userdomain.User
	Scope            tenant.Scope
}

// TokenIssuer signs and validates access tokens.
type TokenIssuer interface {
	Issue(cs security.ClaimSet) (string, time.Time, error)
	Parse(token string) (*security.AccessClaims, error)
}

// RefreshStore is the refresh token store as seen by the orchestrator.
type RefreshStore interface {
	Issue(ctx context.Context, userID int64) (refreshservice.Secret, error)
	Rotate(ctx context.Context, presented string) (refreshservice.RotateResult, error)
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
	Revoke(ctx context.Context, presented string) error
}

// RevocationRegistry is the access token denylist.
type RevocationRegistry interface {
	Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TxRunner runs fn in one transaction. db.Transactor implements it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithEmitter sets the auth event emitter. Events are sent asynchronously.
func WithEmitter(e telemetry.EventEmitter) Option { return func(s *AuthService) { s.emitter = e } }

// WithMetrics sets the auth counters.
func WithMetrics(m *telemetry.Metrics) Option { return func(s *AuthService) { s.metrics = m } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *AuthService) { s.now = now } }

// AuthService is the only entry point controllers use. It keeps no mutable state of its own.
type AuthService struct {
	verifier *Verifier
	issuer   TokenIssuer
	refresh  RefreshStore
	denylist RevocationRegistry
	tx       TxRunner
	emitter  telemetry.EventEmitter
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	verifier *Verifier,
	issuer TokenIssuer,
	refresh RefreshStore,
	denylist RevocationRegistry,
	tx TxRunner,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		verifier: verifier,
		issuer:   issuer,
		refresh:  refresh,
		denylist: denylist,
		tx:       tx,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates identifier and password in scope and returns a new session.
// Unknown user, wrong password, inactive organization or membership, and missing platform capability
// all return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string, scope tenant.Scope) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login", trace.WithAttributes(attribute.String("auth.scope", scope.Kind.String())))
	defer span.End()
	log := logger.From(ctx).With(logger.Component("auth"), logger.Op("login"), logger.Scope(scope.String()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.verifier.Verify(ctx, identifier, password, scope)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			reason := reasonOf(err)
			log.Info("login denied", logger.Reason(reason))
			s.fail(ctx, span, telemetry.EventLoginFailure, 0, scope, reason)
			return nil, ErrInvalidCredentials
		}
		log.Error("login: verify", logger.Err(err))
		span.SetStatus(otelcodes.Error, "verify")
		return nil, fmt.Errorf("login: %w", err)
	}

	sess, jti, err := s.startSession(ctx, *p, scope)
	if err != nil {
		log.Error("login: issue session", logger.UserID(p.User.ID), logger.Err(err))
		span.SetStatus(otelcodes.Error, "issue")
		return nil, fmt.Errorf("login: %w", err)
	}
	log.Info("login succeeded", logger.UserID(p.User.ID), logger.JTI(jti))
	s.metrics.Login(ctx, "success", scope.Kind.String())
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type: telemetry.EventLoginSuccess, UserID: p.User.ID, OrgID: scope.OrganizationID, Scope: scope.Kind.String(), JTI: jti,
	})
	return sess, nil
}

// startSession issues an access token and a fresh refresh token for p.
func (s *AuthService) startSession(ctx context.Context, p Principal, scope tenant.Scope) (*Session, string, error) {
	access, accessExp, jti, err := s.signAccess(p, scope)
	if err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	secret, err := s.refresh.Issue(ctx, p.User.ID)
	if err != nil {
		return nil, "", err
	}
	return &Session{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     secret.Plaintext,
		RefreshExpiresAt: secret.ExpiresAt,
		User:             p.User,
		Scope:            scope,
	}, jti, nil
}

func (s *AuthService) signAccess(p Principal, scope tenant.Scope) (token string, exp time.Time, jti string, err error) {
	cs, err := BuildClaims(p, scope, s.now())
	if err != nil {
		return "", time.Time{}, "", err
	}
	token, exp, err = s.issuer.Issue(cs)
	if err != nil {
		return "", time.Time{}, "", err
	}
	return token, exp, cs.JTI, nil
}

// Refresh exchanges a refresh secret for a new session in scope. The presented secret is consumed.
// Presenting an already used secret revokes every refresh token of its owner before returning.
// Membership, organization state and platform capability are checked again; a failed check revokes
// the successor secret. All failures return ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, scope tenant.Scope) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Refresh", trace.WithAttributes(attribute.String("auth.scope", scope.Kind.String())))
	defer span.End()
	log := logger.From(ctx).With(logger.Component("auth"), logger.Op("refresh"), logger.Scope(scope.String()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.refresh.Rotate(ctx, refreshToken)
	if err != nil {
		log.Error("refresh: rotate", logger.Err(err))
		span.SetStatus(otelcodes.Error, "rotate")
		return nil, fmt.Errorf("refresh: %w", err)
	}

	switch res.Outcome {
	case refreshdomain.OutcomeNotFound:
		log.Info("refresh denied", logger.Reason("not_found"))
		s.refreshFail(ctx, span, telemetry.EventRefreshFailure, 0, scope, "not_found")
		return nil, ErrInvalidRefreshToken
	case refreshdomain.OutcomeReuseDetected:
		log.Warn("refresh token reuse", logger.UserID(res.UserID))
		s.refreshFail(ctx, span, telemetry.EventRefreshReuseDetected, res.UserID, scope, "reuse_detected")
		return nil, ErrInvalidRefreshToken
	}

	p, err := s.verifier.Authorize(ctx, res.UserID, scope)
	if err == nil {
		var access, jti string
		var accessExp time.Time
		if access, accessExp, jti, err = s.signAccess(*p, scope); err == nil {
			log.Info("refresh succeeded", logger.UserID(res.UserID), logger.JTI(jti))
			s.metrics.Refresh(ctx, "rotated", scope.Kind.String())
			telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
				Type: telemetry.EventRefreshSuccess, UserID: res.UserID, OrgID: scope.OrganizationID, Scope: scope.Kind.String(), JTI: jti,
			})
			return &Session{
				AccessToken:      access,
				AccessExpiresAt:  accessExp,
				RefreshToken:     res.Secret.Plaintext,
				RefreshExpiresAt: res.Secret.ExpiresAt,
				User:             p.User,
				Scope:            scope,
			}, nil
		}
	}

	// The successor must not outlive a failed renewal. Use a fresh context so a cancelled request still revokes it.
	revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if rerr := s.refresh.Revoke(revokeCtx, res.Secret.Plaintext); rerr != nil {
		log.Error("refresh: revoke successor", logger.UserID(res.UserID), logger.Err(rerr))
	}
	if errors.Is(err, ErrInvalidCredentials) {
		reason := reasonOf(err)
		log.Info("refresh denied", logger.UserID(res.UserID), logger.Reason(reason))
		s.refreshFail(ctx, span, telemetry.EventRefreshFailure, res.UserID, scope, reason)
		return nil, ErrInvalidRefreshToken
	}
	log.Error("refresh: reauthorize", logger.UserID(res.UserID), logger.Err(err))
	span.SetStatus(otelcodes.Error, "reauthorize")
	return nil, fmt.Errorf("refresh: %w", err)
}

// Logout denylists jti until accessExpiresAt and revokes every refresh token of subject, in one transaction.
// A malformed jti, a non-numeric or non-positive subject, or a zero expiry returns ErrMalformedInput
// without touching the store.
func (s *AuthService) Logout(ctx context.Context, jti, subject string, accessExpiresAt time.Time) error {
	ctx, span := s.tracer.Start(ctx, "auth.Logout")
	defer span.End()
	log := logger.From(ctx).With(logger.Component("auth"), logger.Op("logout"))

	if !security.ValidJTI(jti) || accessExpiresAt.IsZero() {
		span.SetStatus(otelcodes.Error, "malformed")
		return ErrMalformedInput
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || userID <= 0 {
		span.SetStatus(otelcodes.Error, "malformed")
		return ErrMalformedInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var revoked int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.denylist.Revoke(ctx, jti, userID, accessExpiresAt); err != nil {
			return fmt.Errorf("denylist: %w", err)
		}
		n, err := s.refresh.RevokeAllForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
		revoked = n
		return nil
	})
	if err != nil {
		log.Error("logout failed", logger.UserID(userID), logger.JTI(jti), logger.Err(err))
		span.SetStatus(otelcodes.Error, "store")
		return fmt.Errorf("logout: %w", err)
	}
	log.Info("logout", logger.UserID(userID), logger.JTI(jti), logger.Count("refresh_revoked", revoked))
	s.metrics.Logout(ctx)
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{Type: telemetry.EventLogout, UserID: userID, JTI: jti})
	return nil
}

// LogoutToken validates accessToken's signature and expiry and logs it out.
func (s *AuthService) LogoutToken(ctx context.Context, accessToken string) error {
	claims, err := s.issuer.Parse(accessToken)
	if err != nil {
		return ErrInvalidAccessToken
	}
	return s.Logout(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time)
}

// ValidateAccess checks accessToken's signature, expiry, issuer and audience, then the denylist.
func (s *AuthService) ValidateAccess(ctx context.Context, accessToken string) (*security.AccessClaims, error) {
	claims, err := s.issuer.Parse(accessToken)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.From(ctx).Error("validate: denylist lookup", logger.JTI(claims.ID), logger.Err(err))
		return nil, fmt.Errorf("validate: %w", err)
	}
	if revoked {
		logger.From(ctx).Debug("access token revoked", logger.JTI(claims.ID))
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

func (s *AuthService) fail(ctx context.Context, span trace.Span, typ telemetry.EventType, userID int64, scope tenant.Scope, reason string) {
	span.SetStatus(otelcodes.Error, string(typ))
	span.SetAttributes(attribute.String("auth.reason", reason))
	s.metrics.Login(ctx, "failure", scope.Kind.String())
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type: typ, UserID: userID, OrgID: scope.OrganizationID, Scope: scope.Kind.String(), Reason: reason,
	})
}

func (s *AuthService) refreshFail(ctx context.Context, span trace.Span, typ telemetry.EventType, userID int64, scope tenant.Scope, reason string) {
	span.SetStatus(otelcodes.Error, string(typ))
	span.SetAttributes(attribute.String("auth.reason", reason))
	s.metrics.Refresh(ctx, reason, scope.Kind.String())
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type: typ, UserID: userID, OrgID: scope.OrganizationID, Scope: scope.Kind.String(), Reason: reason,
	})
}

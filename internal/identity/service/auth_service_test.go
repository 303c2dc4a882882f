package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	membershipdomain "room-booking/backend/internal/membership/domain"
	orgdomain "room-booking/backend/internal/organization/domain"
	refreshrepo "room-booking/backend/internal/refreshtoken/repository"
	refreshservice "room-booking/backend/internal/refreshtoken/service"
	revocationrepo "room-booking/backend/internal/revocation/repository"
	revocationservice "room-booking/backend/internal/revocation/service"
	"room-booking/backend/internal/security"
	"room-booking/backend/internal/telemetry"
	"room-booking/backend/internal/tenant"
	userdomain "room-booking/backend/internal/user/domain"
)

type memUserRepo struct {
	mu   sync.Mutex
	byID map[int64]*userdomain.User
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByUsernameOrEmail(ctx context.Context, identifier string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == identifier {
			return u, nil
		}
	}
	for _, u := range r.byID {
		if u.Email == identifier {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

type memOrgRepo struct {
	mu   sync.Mutex
	byID map[string]*orgdomain.Organization
}

func (r *memOrgRepo) GetByID(ctx context.Context, id string) (*orgdomain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *memOrgRepo) setActive(id string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].Active = active
}

type memMembershipRepo struct {
	mu   sync.Mutex
	rows map[string]*membershipdomain.Membership
	err  error
}

func memberKey(orgID string, userID int64) string {
	return orgID + "/" + strconv.FormatInt(userID, 10)
}

func (r *memMembershipRepo) IsActiveMember(ctx context.Context, orgID string, userID int64) (membershipdomain.Role, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", false, r.err
	}
	m := r.rows[memberKey(orgID, userID)]
	if !m.IsActive() {
		return "", false, nil
	}
	return m.Role, true, nil
}

func (r *memMembershipRepo) setStatus(orgID string, userID int64, st membershipdomain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[memberKey(orgID, userID)].Status = st
}

// passTx runs fn inline. The in-memory stores have no transaction to join.
type passTx struct{ calls int }

func (p *passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

// syncEmitter records events; Emit may be called from EmitAsync goroutines.
type syncEmitter struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (e *syncEmitter) Emit(ctx context.Context, ev *telemetry.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, *ev)
	return nil
}

func (e *syncEmitter) has(typ telemetry.EventType) func() bool {
	return func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		for _, ev := range e.events {
			if ev.Type == typ {
				return true
			}
		}
		return false
	}
}

func (e *syncEmitter) find(typ telemetry.EventType) telemetry.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.events {
		if ev.Type == typ {
			return ev
		}
	}
	return telemetry.Event{}
}

const (
	aliceID    int64 = 1
	bobID      int64 = 2
	rootID     int64 = 3
	acmeID           = "org-acme"
	dormantID        = "org-dormant"
	alicePass        = "Secret123!"
	refreshTTL       = 7 * 24 * time.Hour
)

type fixture struct {
	svc      *AuthService
	users    *memUserRepo
	orgs     *memOrgRepo
	members  *memMembershipRepo
	refresh  *refreshrepo.MemoryRepository
	denylist *revocationrepo.MemoryRepository
	issuer   *security.TokenIssuer
	emitter  *syncEmitter
	tx       *passTx
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher := security.NewHasher(4)
	digest, err := hasher.Hash([]byte(alicePass))
	require.NoError(t, err)

	users := &memUserRepo{byID: map[int64]*userdomain.User{
		aliceID: {ID: aliceID, Username: "alice", Email: "alice@example.com", PasswordHash: digest, Role: userdomain.LegacyRoleUser},
		bobID:   {ID: bobID, Username: "bob", Email: "bob@example.com", PasswordHash: digest, Role: userdomain.LegacyRoleAdmin},
		rootID:  {ID: rootID, Username: "root", Email: "root@example.com", PasswordHash: digest, Role: userdomain.LegacyRoleUser, IsPlatformAdmin: true},
	}}
	orgs := &memOrgRepo{byID: map[string]*orgdomain.Organization{
		acmeID:    {ID: acmeID, Slug: "acme", Name: "Acme", Active: true},
		dormantID: {ID: dormantID, Slug: "dormant", Name: "Dormant", Active: false},
	}}
	members := &memMembershipRepo{rows: map[string]*membershipdomain.Membership{
		memberKey(acmeID, aliceID):    {OrganizationID: acmeID, UserID: aliceID, Role: membershipdomain.RoleApprover, Status: membershipdomain.StatusActive},
		memberKey(acmeID, bobID):      {OrganizationID: acmeID, UserID: bobID, Role: membershipdomain.RoleUser, Status: membershipdomain.StatusSuspended},
		memberKey(dormantID, aliceID): {OrganizationID: dormantID, UserID: aliceID, Role: membershipdomain.RoleOrgAdmin, Status: membershipdomain.StatusActive},
	}}

	refresh := refreshrepo.NewMemoryRepository()
	denylist := revocationrepo.NewMemoryRepository()
	issuer := security.NewTestTokenIssuer()
	emitter := &syncEmitter{}
	tx := &passTx{}

	svc := NewAuthService(
		NewVerifier(users, orgs, members, hasher),
		issuer,
		refreshservice.NewStore(refresh, refreshTTL, 3),
		revocationservice.NewRegistry(denylist),
		tx,
		WithEmitter(emitter),
	)
	return &fixture{svc: svc, users: users, orgs: orgs, members: members, refresh: refresh,
		denylist: denylist, issuer: issuer, emitter: emitter, tx: tx}
}

func TestLogin_OrganizationScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Login(ctx, "alice", alicePass, tenant.Organization(acmeID))
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)
	require.NotEmpty(t, sess.RefreshToken)
	assert.Equal(t, aliceID, sess.User.ID)
	assert.WithinDuration(t, time.Now().Add(refreshTTL), sess.RefreshExpiresAt, time.Minute)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), sess.AccessExpiresAt, time.Minute)

	claims, err := f.issuer.Parse(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, acmeID, claims.OrgID)
	assert.Equal(t, string(membershipdomain.RoleApprover), claims.OrgRole)
	assert.False(t, claims.IsPlatformAdmin)
	assert.Empty(t, claims.Role)
	assert.True(t, security.ValidJTI(claims.ID))

	assert.Equal(t, 1, f.refresh.Live(aliceID, time.Now()))
	assert.Eventually(t, f.emitter.has(telemetry.EventLoginSuccess), time.Second, 10*time.Millisecond)
}

func TestLogin_ByEmail(t *testing.T) {
	f := newFixture(t)
	sess, err := f.svc.Login(context.Background(), "  alice@example.com ", alicePass, tenant.Legacy())
	require.NoError(t, err)

	claims, err := f.issuer.Parse(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, string(userdomain.LegacyRoleUser), claims.Role)
	assert.Empty(t, claims.OrgID)
	assert.False(t, claims.IsPlatformAdmin)
}

func TestLogin_PlatformScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Login(ctx, "root", alicePass, tenant.Platform())
	require.NoError(t, err)
	claims, err := f.issuer.Parse(sess.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsPlatformAdmin)
	assert.Empty(t, claims.OrgID)
	assert.Empty(t, claims.Role)

	// bob has the legacy admin role but not the platform flag.
	_, err = f.svc.Login(ctx, "bob", alicePass, tenant.Platform())
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_FreshJTIPerLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Login(ctx, "alice", alicePass, tenant.Legacy())
	require.NoError(t, err)
	b, err := f.svc.Login(ctx, "alice", alicePass, tenant.Legacy())
	require.NoError(t, err)

	ca, err := f.issuer.Parse(a.AccessToken)
	require.NoError(t, err)
	cb, err := f.issuer.Parse(b.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
	assert.Equal(t, 2, f.refresh.Live(aliceID, time.Now()))
}

func TestLogin_FailuresAreUniform(t *testing.T) {
	f := newFixture(t)
	testCases := []struct {
		name       string
		identifier string
		password   string
		scope      tenant.Scope
		reason     string
	}{
		{"unknown user", "mallory", alicePass, tenant.Legacy(), reasonUnknownUser},
		{"empty identifier", "", alicePass, tenant.Legacy(), reasonUnknownUser},
		{"wrong password", "alice", "nope", tenant.Legacy(), reasonBadPassword},
		{"empty password", "alice", "", tenant.Legacy(), reasonBadPassword},
		{"inactive organization", "alice", alicePass, tenant.Organization(dormantID), reasonOrgInactive},
		{"unknown organization", "alice", alicePass, tenant.Organization("org-missing"), reasonOrgInactive},
		{"suspended membership", "bob", alicePass, tenant.Organization(acmeID), reasonMembershipInactive},
		{"no membership", "root", alicePass, tenant.Organization(acmeID), reasonMembershipInactive},
		{"not platform admin", "alice", alicePass, tenant.Platform(), reasonNotPlatformAdmin},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sess, err := f.svc.Login(context.Background(), tc.identifier, tc.password, tc.scope)
			assert.Nil(t, sess)
			require.Error(t, err)
			assert.Equal(t, ErrInvalidCredentials, err, "caller must see the bare sentinel")
			assert.ErrorIs(t, err, ErrAuthenticationFailed)
			assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())
		})
	}
	assert.Equal(t, 0, f.refresh.Len(), "failed logins must not issue refresh tokens")

	require.Eventually(t, f.emitter.has(telemetry.EventLoginFailure), time.Second, 10*time.Millisecond)
	ev := f.emitter.find(telemetry.EventLoginFailure)
	assert.NotEmpty(t, ev.Reason)
}

func TestLogin_StoreErrorIsNotCredentialError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("db down")
	f.members.err = boom

	_, err := f.svc.Login(context.Background(), "alice", alicePass, tenant.Organization(acmeID))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAuthenticationFailed)
}

func TestLogin_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Login(ctx, "alice", alicePass, tenant.Legacy())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.refresh.Len())
}

func TestRefresh_RotatesAndReissues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := tenant.Organization(acmeID)

	first, err := f.svc.Login(ctx, "alice", alicePass, scope)
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, first.RefreshToken, scope)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	c1, err := f.issuer.Parse(first.AccessToken)
	require.NoError(t, err)
	c2, err := f.issuer.Parse(second.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
	assert.Equal(t, acmeID, c2.OrgID)
	assert.Equal(t, string(membershipdomain.RoleApprover), c2.OrgRole)
	assert.Equal(t, 1, f.refresh.Live(aliceID, time.Now()))

	third, err := f.svc.Refresh(ctx, second.RefreshToken, scope)
	require.NoError(t, err)
	assert.NotEmpty(t, third.RefreshToken)
	assert.Eventually(t, f.emitter.has(telemetry.EventRefreshSuccess), time.Second, 10*time.Millisecond)
}

func TestRefresh_ReuseRevokesFamily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := tenant.Legacy()

	// Two devices, one stolen secret.
	phone, err := f.svc.Login(ctx, "alice", alicePass, scope)
	require.NoError(t, err)
	laptop, err := f.svc.Login(ctx, "alice", alicePass, scope)
	require.NoError(t, err)
	other, err := f.svc.Login(ctx, "bob", alicePass, scope)
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, phone.RefreshToken, scope)
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, phone.RefreshToken, scope)
	assert.Equal(t, ErrInvalidRefreshToken, err)
	assert.Equal(t, 0, f.refresh.Live(aliceID, time.Now()), "reuse revokes every token of the user")
	assert.Equal(t, 1, f.refresh.Live(bobID, time.Now()), "other users are untouched")

	_, err = f.svc.Refresh(ctx, rotated.RefreshToken, scope)
	assert.Equal(t, ErrInvalidRefreshToken, err)
	_, err = f.svc.Refresh(ctx, laptop.RefreshToken, scope)
	assert.Equal(t, ErrInvalidRefreshToken, err)
	_, err = f.svc.Refresh(ctx, other.RefreshToken, scope)
	assert.NoError(t, err)

	require.Eventually(t, f.emitter.has(telemetry.EventRefreshReuseDetected), time.Second, 10*time.Millisecond)
	assert.Equal(t, aliceID, f.emitter.find(telemetry.EventRefreshReuseDetected).UserID)
}

func TestRefresh_UnknownSecret(t *testing.T) {
	f := newFixture(t)
	for _, secret := range []string{"", "not-a-token", string(make([]byte, 300))} {
		_, err := f.svc.Refresh(context.Background(), secret, tenant.Legacy())
		assert.Equal(t, ErrInvalidRefreshToken, err)
	}
}

func TestRefresh_ExpiredSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Login(ctx, "alice", alicePass, tenant.Legacy())
	require.NoError(t, err)
	f.refresh.Expire(security.HashRefreshToken(sess.RefreshToken), time.Now().Add(-time.Minute))

	_, err = f.svc.Refresh(ctx, sess.RefreshToken, tenant.Legacy())
	assert.Equal(t, ErrInvalidRefreshToken, err)
}

func TestRefresh_ReauthorizesScope(t *testing.T) {
	testCases := []struct {
		name  string
		scope tenant.Scope
		setup func(f *fixture)
	}{
		{"organization deactivated", tenant.Organization(acmeID), func(f *fixture) { f.orgs.setActive(acmeID, false) }},
		{"membership suspended", tenant.Organization(acmeID), func(f *fixture) {
			f.members.setStatus(acmeID, aliceID, membershipdomain.StatusSuspended)
		}},
		{"membership removed", tenant.Organization(acmeID), func(f *fixture) {
			f.members.setStatus(acmeID, aliceID, membershipdomain.StatusRemoved)
		}},
		{"user deleted", tenant.Legacy(), func(f *fixture) { f.users.remove(aliceID) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			sess, err := f.svc.Login(ctx, "alice", alicePass, tc.scope)
			require.NoError(t, err)

			tc.setup(f)
			_, err = f.svc.Refresh(ctx, sess.RefreshToken, tc.scope)
			assert.Equal(t, ErrInvalidRefreshToken, err)
			assert.Equal(t, 0, f.refresh.Live(aliceID, time.Now()), "successor must be revoked")
		})
	}
}

func TestRefresh_ScopeIsCheckedPerRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Login(ctx, "alice", alicePass, tenant.Legacy())
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, sess.RefreshToken, tenant.Platform())
	assert.Equal(t, ErrInvalidRefreshToken, err)
}

func TestRefresh_ConcurrentPresentationsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Login(ctx, "alice", alicePass, tenant.Legacy())
	require.NoError(t, err)

	const racers = 2
	var barrier sync.WaitGroup
	barrier.Add(racers)
	f.refresh.AfterFirstRead = func() {
		barrier.Done()
		barrier.Wait()
	}

	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Refresh(ctx, sess.RefreshToken, tenant.Legacy())
		}(i)
	}
	wg.Wait()

	var ok, denied int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInvalidRefreshToken):
			denied++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, denied)
	assert.Equal(t, 1, f.refresh.Live(aliceID, time.Now()), "exactly one live token after the race")
}

func TestLogout_RevokesAccessAndRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := tenant.Organization(acmeID)

	sess, err := f.svc.Login(ctx, "alice", alicePass, scope)
	require.NoError(t, err)
	other, err := f.svc.Login(ctx, "alice", alicePass, tenant.Legacy())
	require.NoError(t, err)

	claims, err := f.svc.ValidateAccess(ctx, sess.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time))
	assert.Equal(t, 1, f.tx.calls, "both revocations run in one transaction")

	_, err = f.svc.ValidateAccess(ctx, sess.AccessToken)
	assert.Equal(t, ErrInvalidAccessToken, err)
	_, err = f.svc.Refresh(ctx, sess.RefreshToken, scope)
	assert.Equal(t, ErrInvalidRefreshToken, err)
	_, err = f.svc.Refresh(ctx, other.RefreshToken, tenant.Legacy())
	assert.Equal(t, ErrInvalidRefreshToken, err, "logout ends every session of the user")

	// The other access token remains valid until it expires.
	_, err = f.svc.ValidateAccess(ctx, other.AccessToken)
	assert.NoError(t, err)

	require.Eventually(t, f.emitter.has(telemetry.EventLogout), time.Second, 10*time.Millisecond)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Login(ctx, "alice", alicePass, tenant.Legacy())
	require.NoError(t, err)

	require.NoError(t, f.svc.LogoutToken(ctx, sess.AccessToken))
	require.NoError(t, f.svc.LogoutToken(ctx, sess.AccessToken))
	assert.Equal(t, 1, f.denylist.Len())
}

func TestLogout_MalformedInput(t *testing.T) {
	f := newFixture(t)
	exp := time.Now().Add(time.Minute)
	jti := security.NewJTI()
	testCases := []struct {
		name    string
		jti     string
		subject string
		exp     time.Time
	}{
		{"empty jti", "", "1", exp},
		{"bad jti", "not-a-uuid", "1", exp},
		{"empty subject", jti, "", exp},
		{"non-numeric subject", jti, "alice", exp},
		{"zero subject", jti, "0", exp},
		{"negative subject", jti, "-4", exp},
		{"zero expiry", jti, "1", time.Time{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.Logout(context.Background(), tc.jti, tc.subject, tc.exp)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
	assert.Equal(t, 0, f.tx.calls)
	assert.Equal(t, 0, f.denylist.Len())
}

func TestLogoutToken_RejectsInvalidToken(t *testing.T) {
	f := newFixture(t)
	err := f.svc.LogoutToken(context.Background(), "garbage")
	assert.Equal(t, ErrInvalidAccessToken, err)
	assert.Equal(t, 0, f.tx.calls)
}

func TestValidateAccess_RejectsForeignToken(t *testing.T) {
	f := newFixture(t)
	foreign, err := security.NewTokenIssuer([]byte("another-signing-key-0123456789abcdef"), "test-issuer", "test-audience", 15*time.Minute)
	require.NoError(t, err)
	token, _, err := foreign.Issue(security.ClaimSet{Subject: "1", JTI: security.NewJTI(), IssuedAt: time.Now()})
	require.NoError(t, err)

	_, err = f.svc.ValidateAccess(context.Background(), token)
	assert.Equal(t, ErrInvalidAccessToken, err)
}

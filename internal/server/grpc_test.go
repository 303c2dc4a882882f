package server

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	healthhandler "room-booking/backend/internal/health/handler"
	identityservice "room-booking/backend/internal/identity/service"
	"room-booking/backend/internal/security"
	"room-booking/backend/internal/tenant"
)

// mockServiceRegistrar implements grpc.ServiceRegistrar for testing.
type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	m.services = append(m.services, desc.ServiceName)
}

type legacyResolver struct{}

func (legacyResolver) Resolve(ctx context.Context, host, headerOrg string) (tenant.Context, error) {
	return tenant.Context{}, nil
}

type rejectAll struct{}

func (rejectAll) ValidateAccess(ctx context.Context, token string) (*security.AccessClaims, error) {
	return nil, identityservice.ErrInvalidAccessToken
}

func TestRegisterServices_Health(t *testing.T) {
	reg := &mockServiceRegistrar{}
	RegisterServices(reg, Deps{Health: healthhandler.NewServer(nil)})
	if len(reg.services) != 1 || reg.services[0] != "grpc.health.v1.Health" {
		t.Errorf("services = %v, want [grpc.health.v1.Health]", reg.services)
	}
}

func TestRegisterServices_NilDependencies(t *testing.T) {
	reg := &mockServiceRegistrar{}
	RegisterServices(reg, Deps{})
	if len(reg.services) != 0 {
		t.Errorf("services = %v, want none", reg.services)
	}
}

func TestDeps_PublicMethods(t *testing.T) {
	m := Deps{PublicMethods: []string{"/booking.v1.AuthService/Login"}}.publicMethods()
	for _, name := range []string{HealthCheckMethod, HealthWatchMethod, "/booking.v1.AuthService/Login"} {
		if !m[name] {
			t.Errorf("%s should be public", name)
		}
	}
	if m["/booking.v1.RoomService/Reserve"] {
		t.Error("unlisted methods must not be public")
	}
}

func TestNewServer_HealthIsPublic(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	s := NewServer(Deps{Validator: rejectAll{}, Tenants: legacyResolver{}, Health: healthhandler.NewServer(nil)})
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}
}

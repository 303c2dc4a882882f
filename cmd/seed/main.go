// seed inserts development sample data for local testing. Run via go run ./cmd/seed.
// Idempotent: skips inserts if the dev user (alice) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"room-booking/backend/internal/config"
	"room-booking/backend/internal/db"
	membershipdomain "room-booking/backend/internal/membership/domain"
	membershiprepo "room-booking/backend/internal/membership/repository"
	orgdomain "room-booking/backend/internal/organization/domain"
	orgrepo "room-booking/backend/internal/organization/repository"
	"room-booking/backend/internal/security"
	userdomain "room-booking/backend/internal/user/domain"
	userrepo "room-booking/backend/internal/user/repository"
)

const (
	devPassword   = "Secret123!"
	devUsername   = "alice"
	devOrgID      = "dev-org-acme"
	devOrgSlug    = "acme"
	dormantOrgID  = "dev-org-dormant"
	dormantSlug   = "dormant"
	memberName    = "bob"
	platformAdmin = "root"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	members := membershiprepo.NewPostgresRepository(conn)

	existing, err := users.GetByUsernameOrEmail(ctx, devUsername)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (alice exists). Skipping.")
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()

	err = db.NewTransactor(conn).WithinTx(ctx, func(ctx context.Context) error {
		alice := &userdomain.User{Username: devUsername, Email: "alice@example.com", PasswordHash: passwordHash, Role: userdomain.LegacyRoleUser}
		bob := &userdomain.User{Username: memberName, Email: "bob@example.com", PasswordHash: passwordHash, Role: userdomain.LegacyRoleAdmin}
		root := &userdomain.User{Username: platformAdmin, Email: "root@example.com", PasswordHash: passwordHash, Role: userdomain.LegacyRoleUser, IsPlatformAdmin: true}
		for _, u := range []*userdomain.User{alice, bob, root} {
			if err := users.Create(ctx, u); err != nil {
				return fmt.Errorf("create user %s: %w", u.Username, err)
			}
		}

		for _, o := range []*orgdomain.Organization{
			{ID: devOrgID, Slug: devOrgSlug, Name: "Acme Dev", Active: true},
			{ID: dormantOrgID, Slug: dormantSlug, Name: "Dormant Dev", Active: false},
		} {
			if err := orgs.Create(ctx, o); err != nil {
				return fmt.Errorf("create org %s: %w", o.Slug, err)
			}
		}

		for _, m := range []*membershipdomain.Membership{
			{OrganizationID: devOrgID, UserID: alice.ID, Role: membershipdomain.RoleOrgAdmin, Status: membershipdomain.StatusActive, JoinedAt: now},
			{OrganizationID: devOrgID, UserID: bob.ID, Role: membershipdomain.RoleApprover, Status: membershipdomain.StatusActive, JoinedAt: now},
			{OrganizationID: dormantOrgID, UserID: alice.ID, Role: membershipdomain.RoleUser, Status: membershipdomain.StatusActive, JoinedAt: now},
		} {
			if err := members.Upsert(ctx, m); err != nil {
				return fmt.Errorf("create membership: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Legacy login: %s / %s\n", devUsername, devPassword)
	fmt.Printf("Org login:    %s / %s on %s.%s\n", devUsername, devPassword, devOrgSlug, cfg.TenantBaseDomain)
	fmt.Printf("Platform:     %s / %s on %s.%s\n", platformAdmin, devPassword, cfg.PlatformSubdomain, cfg.TenantBaseDomain)
}

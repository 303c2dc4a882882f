package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

// setBaseEnv clears the environment and sets the minimum required for Load to succeed.
func setBaseEnv(t *testing.T) {
	t.Helper()
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")
	os.Setenv("JWT_SIGNING_KEY", testSigningKey)
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTIssuer != "room-booking-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "room-booking-auth")
	}
	if cfg.JWTAudience != "room-booking-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "room-booking-api")
	}
	if cfg.JWTAccessTTLMinutes != 15 {
		t.Errorf("JWTAccessTTLMinutes = %d, want 15", cfg.JWTAccessTTLMinutes)
	}
	if cfg.JWTRefreshTTLDays != 7 {
		t.Errorf("JWTRefreshTTLDays = %d, want 7", cfg.JWTRefreshTTLDays)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if !cfg.CleanupEnabled {
		t.Error("CleanupEnabled should default to true")
	}
	if cfg.CleanupInterval() != time.Hour {
		t.Errorf("CleanupInterval = %v, want 1h", cfg.CleanupInterval())
	}
	if cfg.RefreshRotateMaxRetries != 3 {
		t.Errorf("RefreshRotateMaxRetries = %d, want 3", cfg.RefreshRotateMaxRetries)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 7*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", cfg.RefreshTTL())
	}
	if cfg.RevokedGrace() != 0 {
		t.Errorf("RevokedGrace = %v, want 0", cfg.RevokedGrace())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setBaseEnv(t)
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("JWT_ACCESS_TTL_MINUTES", "30")
	os.Setenv("JWT_REFRESH_TTL_DAYS", "14")
	os.Setenv("CLEANUP_REVOKED_GRACE", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.AccessTTL() != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 14*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 336h", cfg.RefreshTTL())
	}
	if cfg.RevokedGrace() != 24*time.Hour {
		t.Errorf("RevokedGrace = %v, want 24h", cfg.RevokedGrace())
	}
}

func TestLoad_SigningKeyTooShort(t *testing.T) {
	testCases := []struct {
		name string
		key  string
	}{
		{"missing", ""},
		{"one short", testSigningKey[:31]},
		{"tiny", "secret"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			os.Setenv("JWT_SIGNING_KEY", tc.key)

			cfg, err := Load()
			if err == nil {
				t.Fatal("Load should reject a short signing key")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
			if cfg != nil {
				t.Error("Load should return nil config on error")
			}
			if strings.Contains(err.Error(), tc.key) && tc.key != "" {
				t.Error("error message must not echo the signing key")
			}
		})
	}
}

func TestLoad_AccessTTLRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		err   bool
	}{
		{"lower bound", "5", false},
		{"upper bound", "60", false},
		{"middle", "15", false},
		{"below range", "4", true},
		{"above range", "61", true},
		{"zero", "0", true},
		{"negative", "-10", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			os.Setenv("JWT_ACCESS_TTL_MINUTES", tc.value)

			_, err := Load()
			if tc.err {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("Load err = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
		})
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_CleanupIntervalFloor(t *testing.T) {
	setBaseEnv(t)
	os.Setenv("CLEANUP_INTERVAL_MINUTES", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CleanupInterval() != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want 5m floor", cfg.CleanupInterval())
	}
}

func TestLoad_RefreshTTLDaysInvalid(t *testing.T) {
	setBaseEnv(t)
	os.Setenv("JWT_REFRESH_TTL_DAYS", "0")

	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load err = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_RevokedGraceInvalid(t *testing.T) {
	setBaseEnv(t)
	os.Setenv("CLEANUP_REVOKED_GRACE", "-1h")

	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load err = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_RotateRetriesRange(t *testing.T) {
	setBaseEnv(t)
	os.Setenv("REFRESH_ROTATE_MAX_RETRIES", "0")

	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load err = %v, want ErrInvalidConfig", err)
	}
}

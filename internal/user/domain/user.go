package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the core user entity. The session engine reads it but never mutates it.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         LegacyRole
	// IsPlatformAdmin is the only source of platform-admin capability. Role is not consulted for it.
	IsPlatformAdmin bool
	CreatedAt       time.Time
}

// LegacyRole is the coarse role used by single-tenant (legacy) sessions.
type LegacyRole string

const (
	LegacyRoleUser  LegacyRole = "user"
	LegacyRoleAdmin LegacyRole = "admin"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	switch u.Role {
	case "":
		u.Role = LegacyRoleUser
	case LegacyRoleUser, LegacyRoleAdmin:
	default:
		return errors.New("unknown role")
	}
	return nil
}

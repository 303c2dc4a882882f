package domain

import "time"

// RevokedToken is a denylisted access token id. ExpiresAt is copied from the token itself;
// past it the entry is redundant and may be purged.
type RevokedToken struct {
	JTI       string
	UserID    int64
	ExpiresAt time.Time
	RevokedAt time.Time
}

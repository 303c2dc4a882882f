package domain

import "time"

// RefreshToken is one stored refresh token. Only the hash of the secret is kept.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsLive reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) IsLive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Outcome is the result of presenting a refresh secret for rotation.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeRotated
	OutcomeReuseDetected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRotated:
		return "rotated"
	case OutcomeReuseDetected:
		return "reuse_detected"
	default:
		return "not_found"
	}
}

// Rotation is what the repository reports for one rotate attempt.
type Rotation struct {
	Outcome Outcome
	UserID  int64
	// Next is the inserted successor when Outcome is OutcomeRotated.
	Next *RefreshToken
	// FamilyRevoked counts live tokens revoked by the reuse response.
	FamilyRevoked int64
	// LostRace is set when the token was live at first read but a concurrent rotation revoked it before
	// the row lock was acquired. The caller is refused; the winner's successor is left alone.
	LostRace bool
}

package repository

import (
	"context"
	"sync"
	"time"

	"room-booking/backend/internal/refreshtoken/domain"
)

// MemoryRepository is an in-process Repository with the same rotation semantics as Postgres.
// Rotate reads, releases the lock, then re-reads under the lock, mirroring the two-statement transaction.
type MemoryRepository struct {
	mu     sync.Mutex
	rows   map[int64]*domain.RefreshToken
	byHash map[string]int64
	nextID int64

	// AfterFirstRead, when set, runs between the unlocked read and the locked re-read of Rotate.
	AfterFirstRead func()
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: map[int64]*domain.RefreshToken{}, byHash: map[string]int64{}}
}

func (m *MemoryRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(t)
}

func (m *MemoryRepository) insertLocked(t *domain.RefreshToken) error {
	if _, dup := m.byHash[t.TokenHash]; dup {
		return ErrConflict
	}
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.rows[cp.ID] = &cp
	m.byHash[cp.TokenHash] = cp.ID
	return nil
}

func (m *MemoryRepository) Rotate(ctx context.Context, presentedHash string, next domain.RefreshToken, now time.Time) (domain.Rotation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Rotation{}, err
	}
	m.mu.Lock()
	id, ok := m.byHash[presentedHash]
	var first domain.RefreshToken
	if ok {
		first = *m.rows[id]
	}
	m.mu.Unlock()
	if !ok {
		return domain.Rotation{Outcome: domain.OutcomeNotFound}, nil
	}
	if m.AfterFirstRead != nil {
		m.AfterFirstRead()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[id]
	if !ok {
		return domain.Rotation{Outcome: domain.OutcomeNotFound}, nil
	}
	out := domain.Rotation{UserID: cur.UserID}
	switch {
	case cur.IsLive(now):
		next.UserID = cur.UserID
		if err := m.insertLocked(&next); err != nil {
			return domain.Rotation{}, err
		}
		at := now
		cur.RevokedAt = &at
		out.Outcome = domain.OutcomeRotated
		out.Next = &next
	case first.IsLive(now):
		out.Outcome = domain.OutcomeReuseDetected
		out.LostRace = true
	default:
		out.Outcome = domain.OutcomeReuseDetected
		out.FamilyRevoked = m.revokeAllLocked(cur.UserID, now)
	}
	return out, nil
}

func (m *MemoryRepository) OwnerOf(ctx context.Context, hash string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byHash[hash]
	if !ok {
		return 0, false, nil
	}
	return m.rows[id].UserID, true, nil
}

func (m *MemoryRepository) RevokeAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revokeAllLocked(userID, now), nil
}

func (m *MemoryRepository) revokeAllLocked(userID int64, now time.Time) int64 {
	var n int64
	for _, t := range m.rows {
		if t.UserID == userID && t.RevokedAt == nil {
			at := now
			t.RevokedAt = &at
			n++
		}
	}
	return n
}

func (m *MemoryRepository) RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byHash[hash]
	if !ok || m.rows[id].RevokedAt != nil {
		return false, nil
	}
	at := now
	m.rows[id].RevokedAt = &at
	return true, nil
}

func (m *MemoryRepository) PurgeExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := now.Add(-grace)
	var n int64
	for id, t := range m.rows {
		if !t.ExpiresAt.After(now) || (t.RevokedAt != nil && !t.RevokedAt.After(cutoff)) {
			delete(m.byHash, t.TokenHash)
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

// Live returns how many tokens of userID are live at now.
func (m *MemoryRepository) Live(userID int64, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.rows {
		if t.UserID == userID && t.IsLive(now) {
			n++
		}
	}
	return n
}

// Len returns the number of stored rows.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Expire moves the expiry of the row with hash to at.
func (m *MemoryRepository) Expire(hash string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byHash[hash]; ok {
		m.rows[id].ExpiresAt = at
	}
}

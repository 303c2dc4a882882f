package repository

import (
	"context"
	"sync"
	"time"

	"room-booking/backend/internal/revocation/domain"
)

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[string]domain.RevokedToken
	// Gets counts calls to Get.
	Gets int
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: map[string]domain.RevokedToken{}}
}

func (m *MemoryRepository) Insert(ctx context.Context, t *domain.RevokedToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[t.JTI]; !ok {
		m.rows[t.JTI] = *t
	}
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, jti string) (*domain.RevokedToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	t, ok := m.rows[jti]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for jti, t := range m.rows {
		if !t.ExpiresAt.After(now) {
			delete(m.rows, jti)
			n++
		}
	}
	return n, nil
}

// Len returns the number of entries.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Delete removes jti, simulating a rollback of its insert.
func (m *MemoryRepository) Delete(jti string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, jti)
}

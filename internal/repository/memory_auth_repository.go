package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/event-reservation/internal/model"
)

// MemoryAuthRepository implements UsuarioStore and TokenStore for the
// in-memory mode.
type MemoryAuthRepository struct {
	mu       sync.RWMutex
	usuarios map[uint64]model.Usuario
	byEmail  map[string]uint64
	tokens   map[string]model.RefreshToken
	nextID   uint64
	Now      func() time.Time
}

func NewMemoryAuthRepository() *MemoryAuthRepository {
	return &MemoryAuthRepository{
		usuarios: make(map[uint64]model.Usuario),
		byEmail:  make(map[string]uint64),
		tokens:   make(map[string]model.RefreshToken),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryAuthRepository) Create(ctx context.Context, u *model.Usuario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrEmailExists
	}
	m.nextID++
	u.ID = m.nextID
	m.usuarios[u.ID] = *u
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryAuthRepository) GetByEmail(ctx context.Context, email string) (*model.Usuario, error) {
	m.mu.RLock()
	id, ok := m.byEmail[normalizeEmail(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrUsuarioNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *MemoryAuthRepository) GetByID(ctx context.Context, id uint64) (*model.Usuario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.usuarios[id]
	if !ok {
		return nil, ErrUsuarioNotFound
	}
	return &u, nil
}

func (m *MemoryAuthRepository) StoreRefresh(ctx context.Context, usuarioID uint64, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = model.RefreshToken{
		UsuarioID: usuarioID,
		TokenHash: tokenHash,
		ExpiresAt: exp.UTC(),
		CreatedAt: m.Now(),
	}
	return nil
}

func (m *MemoryAuthRepository) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || m.Now().After(t.ExpiresAt) {
		return 0, ErrTokenInvalid
	}
	return t.UsuarioID, nil
}

func (m *MemoryAuthRepository) RevokeByHash(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := m.Now()
		t.RevokedAt = &now
		m.tokens[tokenHash] = t
	}
	return nil
}

func (m *MemoryAuthRepository) RevokeAllForUser(ctx context.Context, usuarioID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	for h, t := range m.tokens {
		if t.UsuarioID == usuarioID && t.RevokedAt == nil {
			t.RevokedAt = &now
			m.tokens[h] = t
		}
	}
	return nil
}

package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// MemoryRepository keeps users in process memory. Data is lost on restart;
// it backs local development and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	seq     int64
	byID    map[int64]*models.User
	byEmail map[string]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[int64]*models.User),
		byEmail: make(map[string]int64),
	}
}

func (r *MemoryRepository) Create(_ context.Context, email, passwordHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, common.ErrDuplicateEmail
	}

	r.seq++
	u := &models.User{ID: r.seq, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID

	return r.copyOf(u), nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.copyOf(r.byID[id]), nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.copyOf(u), nil
}

func (r *MemoryRepository) SetRefreshHash(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.RefreshTokenHash = &hash
	return nil
}

func (r *MemoryRepository) RotateRefreshHash(_ context.Context, id int64, expected, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if u.RefreshTokenHash == nil || *u.RefreshTokenHash != expected {
		return common.ErrStaleRefreshHash
	}
	u.RefreshTokenHash = &next
	return nil
}

func (r *MemoryRepository) ClearRefreshHash(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		u.RefreshTokenHash = nil
	}
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

// copyOf detaches the returned record from the stored one.
func (r *MemoryRepository) copyOf(u *models.User) *models.User {
	c := *u
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		c.RefreshTokenHash = &h
	}
	return &c
}

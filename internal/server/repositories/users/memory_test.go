package users

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	u, err := repo.Create(ctx, "a@x.com", "h1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = repo.Create(ctx, "a@x.com", "h2")
	require.ErrorIs(t, err, common.ErrDuplicateEmail)

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "h1", got.PasswordHash)

	_, err = repo.FindByEmail(ctx, "b@x.com")
	require.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.FindByID(ctx, 99)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_RefreshHashLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	u, err := repo.Create(ctx, "a@x.com", "h1")
	require.NoError(t, err)

	require.ErrorIs(t, repo.RotateRefreshHash(ctx, u.ID, "r0", "r1"), common.ErrStaleRefreshHash)

	require.NoError(t, repo.SetRefreshHash(ctx, u.ID, "r1"))
	require.NoError(t, repo.RotateRefreshHash(ctx, u.ID, "r1", "r2"))
	require.ErrorIs(t, repo.RotateRefreshHash(ctx, u.ID, "r1", "r3"), common.ErrStaleRefreshHash)

	got, _ := repo.FindByID(ctx, u.ID)
	require.NotNil(t, got.RefreshTokenHash)
	assert.Equal(t, "r2", *got.RefreshTokenHash)

	// returned records are copies
	*got.RefreshTokenHash = "tampered"
	again, _ := repo.FindByID(ctx, u.ID)
	assert.Equal(t, "r2", *again.RefreshTokenHash)

	require.NoError(t, repo.ClearRefreshHash(ctx, u.ID))
	require.NoError(t, repo.ClearRefreshHash(ctx, u.ID))
	again, _ = repo.FindByID(ctx, u.ID)
	assert.Nil(t, again.RefreshTokenHash)

	require.ErrorIs(t, repo.SetRefreshHash(ctx, 99, "x"), common.ErrorNotFound)
	require.ErrorIs(t, repo.RotateRefreshHash(ctx, 99, "x", "y"), common.ErrorNotFound)
}

func TestMemoryRepository_ConcurrentRotationSingleWinner(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	u, err := repo.Create(ctx, "a@x.com", "h1")
	require.NoError(t, err)
	require.NoError(t, repo.SetRefreshHash(ctx, u.ID, "r1"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.RotateRefreshHash(ctx, u.ID, "r1", string(rune('a'+i))) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

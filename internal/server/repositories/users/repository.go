// Package users declares the credential store contract and its PostgreSQL
// and Redis implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository persists user records and their refresh-token hash.
type Repository interface {
	// Create stores a new user. It fails with common.ErrDuplicateEmail if the
	// email is already registered.
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)

	// FindByEmail and FindByID return common.ErrorNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// SetRefreshHash overwrites the stored refresh hash.
	SetRefreshHash(ctx context.Context, id int64, hash string) error

	// RotateRefreshHash replaces expected with next atomically for the user
	// row. It returns common.ErrStaleRefreshHash when the stored value is no
	// longer expected, so of two concurrent rotations only the first wins.
	RotateRefreshHash(ctx context.Context, id int64, expected, next string) error

	// ClearRefreshHash removes the stored hash if one is set. Clearing an
	// already empty hash is not an error.
	ClearRefreshHash(ctx context.Context, id int64) error

	// Ping checks that the backing store answers.
	Ping(ctx context.Context) error
}

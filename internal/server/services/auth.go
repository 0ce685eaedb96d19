// Package services contains server-side business logic. AuthService runs
// the local-credential flows: signup, signin, refresh-token rotation and
// logout.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// bcrypt ignores input past this length.
const maxPasswordBytes = 72

// TokenIssuer mints a fresh access/refresh pair for a user.
type TokenIssuer interface {
	IssuePair(ctx context.Context, userID int64, email string) (*auth.TokenPair, error)
}

// AuthService orchestrates the credential store, password hasher and token
// issuer. A user's stored refresh hash always belongs to the last pair
// handed out; every refresh replaces it, so an older refresh token can
// never be exchanged again.
type AuthService struct {
	users  users.Repository
	issuer TokenIssuer
	hasher auth.PasswordHasher
	logger logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires an AuthService.
func NewAuthService(u users.Repository, i TokenIssuer, h auth.PasswordHasher, l logging.Logger) *AuthService {
	return &AuthService{
		users:  u,
		issuer: i,
		hasher: h,
		logger: l.With("module", "auth_service"),
	}
}

// SignUpLocal registers a user and signs them in.
func (s *AuthService) SignUpLocal(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.issueAndStore(ctx, user)
}

// SignInLocal checks the password and issues a new pair. Unknown email and
// wrong password both yield common.ErrInvalidCredentials.
func (s *AuthService) SignInLocal(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep the timing of the unknown-user path close to a real check
			s.hasher.Verify(password, s.placeholderHash())
			s.logger.Debug(ctx, "signin rejected", "reason", "unknown email")
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Debug(ctx, "signin rejected", "reason", "password mismatch", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	return s.issueAndStore(ctx, user)
}

// Refresh exchanges the presented refresh token for a new pair. The token
// must match the stored hash; the stored hash is then replaced, so a
// token can be used at most once.
func (s *AuthService) Refresh(ctx context.Context, userID int64, refreshToken string) (*auth.TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccessDenied
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !user.HasRefreshHash() {
		s.logger.Debug(ctx, "refresh rejected", "reason", "no active session", "user_id", userID)
		return nil, common.ErrAccessDenied
	}
	current := *user.RefreshTokenHash

	if !s.hasher.Verify(auth.TokenDigest(refreshToken), current) {
		s.logger.Warn(ctx, "refresh rejected", "reason", "refresh token mismatch", "user_id", userID)
		return nil, common.ErrAccessDenied
	}

	pair, next, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.RotateRefreshHash(ctx, user.ID, current, next); err != nil {
		if errors.Is(err, common.ErrStaleRefreshHash) || errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh rejected", "reason", "concurrent rotation", "user_id", userID)
			return nil, common.ErrAccessDenied
		}
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}

	return pair, nil
}

// Logout drops the stored refresh hash. Logging out twice is fine.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.users.ClearRefreshHash(ctx, userID); err != nil {
		return fmt.Errorf("error clearing refresh token: %w", err)
	}
	s.logger.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

func (s *AuthService) issueAndStore(ctx context.Context, user *models.User) (*auth.TokenPair, error) {
	pair, hash, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return pair, nil
}

// issue mints a pair and hashes its refresh token for storage.
func (s *AuthService) issue(ctx context.Context, user *models.User) (*auth.TokenPair, string, error) {
	pair, err := s.issuer.IssuePair(ctx, user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	hash, err := s.hasher.Hash(auth.TokenDigest(pair.RefreshToken))
	if err != nil {
		return nil, "", fmt.Errorf("error hashing refresh token: %w", err)
	}
	return pair, hash, nil
}

func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("authkeeper-placeholder")
	})
	return s.dummyHash
}

// validateCredentials normalizes the email and rejects obviously unusable
// input before any hashing happens.
func validateCredentials(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password longer than %d bytes", common.ErrorValidation, maxPasswordBytes)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: malformed email", common.ErrorValidation)
	}
	return email, nil
}

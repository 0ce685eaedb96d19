// Package auth implements password hashing and the signing and verification
// of access and refresh tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Kind selects which of the two token families a token belongs to.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// audience is stamped into aud so tokens of one kind cannot satisfy the
// other kind's parser even if secrets were ever shared.
func (k Kind) audience() string {
	return "authkeeper/" + k.String()
}

// Claims is the payload carried by both token kinds.
type Claims struct {
	Email string `json:"email"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", common.ErrInvalidSignature)
	}
	return id, nil
}

// TokenPair is what the client receives after every successful auth event.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IssuerConfig carries the secrets and lifetimes of both token kinds.
type IssuerConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// Issuer signs and verifies access and refresh tokens (HS256), each kind
// with its own secret and expiry.
type Issuer struct {
	keys   map[Kind]signingKey
	issuer string
	now    func() time.Time
}

// NewIssuer validates cfg and builds an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, common.ErrMissingSecret
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, common.ErrSharedSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	return &Issuer{
		keys: map[Kind]signingKey{
			KindAccess:  {secret: cfg.AccessSecret, ttl: cfg.AccessTTL},
			KindRefresh: {secret: cfg.RefreshSecret, ttl: cfg.RefreshTTL},
		},
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// Sign creates a token of the given kind for the user.
func (i *Issuer) Sign(kind Kind, userID int64, email string) (string, error) {
	key, ok := i.keys[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %d", kind)
	}

	now := i.now()
	claims := Claims{
		Email: email,
		Type:  kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{kind.audience()},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.secret)
}

// IssuePair signs an access and a refresh token concurrently.
func (i *Issuer) IssuePair(ctx context.Context, userID int64, email string) (*TokenPair, error) {
	var pair TokenPair

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := i.Sign(KindAccess, userID, email)
		pair.AccessToken = t
		return err
	})
	g.Go(func() error {
		t, err := i.Sign(KindRefresh, userID, email)
		pair.RefreshToken = t
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error signing token pair: %w", err)
	}

	return &pair, nil
}

// Verify checks signature, expiry and kind of token. Failures are reported
// as common.ErrTokenExpired or common.ErrInvalidSignature.
func (i *Issuer) Verify(token string, kind Kind) (*Claims, error) {
	key, ok := i.keys[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token kind", common.ErrInvalidSignature)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(kind.audience()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return key.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidSignature, err)
	}
	if !parsed.Valid || claims.Type != kind.String() {
		return nil, common.ErrInvalidSignature
	}

	return claims, nil
}

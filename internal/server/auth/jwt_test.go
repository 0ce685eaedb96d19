package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	i, err := NewIssuer(IssuerConfig{
		AccessSecret:  []byte("at-secret"),
		RefreshSecret: []byte("rt-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "authkeeper-test",
	})
	require.NoError(t, err)
	return i
}

func TestNewIssuer_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     IssuerConfig
		wantErr error
	}{
		{
			name:    "missing access secret",
			cfg:     IssuerConfig{RefreshSecret: []byte("r"), AccessTTL: time.Minute, RefreshTTL: time.Minute},
			wantErr: common.ErrMissingSecret,
		},
		{
			name:    "missing refresh secret",
			cfg:     IssuerConfig{AccessSecret: []byte("a"), AccessTTL: time.Minute, RefreshTTL: time.Minute},
			wantErr: common.ErrMissingSecret,
		},
		{
			name:    "shared secret",
			cfg:     IssuerConfig{AccessSecret: []byte("s"), RefreshSecret: []byte("s"), AccessTTL: time.Minute, RefreshTTL: time.Minute},
			wantErr: common.ErrSharedSecret,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIssuer(tt.cfg)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := NewIssuer(IssuerConfig{AccessSecret: []byte("a"), RefreshSecret: []byte("r")})
	require.Error(t, err, "zero ttl must be rejected")
}

func TestIssuePair_VerifiesWithMatchingKind(t *testing.T) {
	t.Parallel()

	i := newTestIssuer(t)
	pair, err := i.IssuePair(context.Background(), 42, "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	at, err := i.Verify(pair.AccessToken, KindAccess)
	require.NoError(t, err)
	id, err := at.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "a@x.com", at.Email)
	assert.Equal(t, "access", at.Type)

	rt, err := i.Verify(pair.RefreshToken, KindRefresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", rt.Type)
	assert.True(t, rt.ExpiresAt.After(at.ExpiresAt.Time), "refresh tokens outlive access tokens")
}

func TestVerify_KindsNeverCrossValidate(t *testing.T) {
	t.Parallel()

	i := newTestIssuer(t)
	pair, err := i.IssuePair(context.Background(), 1, "a@x.com")
	require.NoError(t, err)

	_, err = i.Verify(pair.AccessToken, KindRefresh)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)

	_, err = i.Verify(pair.RefreshToken, KindAccess)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	i := newTestIssuer(t)
	issued := time.Now().Add(-time.Hour)
	i.now = func() time.Time { return issued }

	tok, err := i.Sign(KindAccess, 7, "e@x.com")
	require.NoError(t, err)

	i.now = time.Now
	_, err = i.Verify(tok, KindAccess)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestVerify_WrongSecretAndGarbage(t *testing.T) {
	t.Parallel()

	i := newTestIssuer(t)
	other, err := NewIssuer(IssuerConfig{
		AccessSecret:  []byte("someone-else"),
		RefreshSecret: []byte("someone-else-rt"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "authkeeper-test",
	})
	require.NoError(t, err)

	forged, err := other.Sign(KindAccess, 1, "a@x.com")
	require.NoError(t, err)

	_, err = i.Verify(forged, KindAccess)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)

	_, err = i.Verify("not.a.jwt", KindAccess)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)

	_, err = i.Verify("", KindRefresh)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	i := newTestIssuer(t)
	claims := Claims{
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "authkeeper-test",
			Audience:  jwt.ClaimStrings{KindAccess.audience()},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("at-secret"))
	require.NoError(t, err)

	_, err = i.Verify(tok, KindAccess)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestSign_SameInstantProducesDistinctTokens(t *testing.T) {
	t.Parallel()

	i := newTestIssuer(t)
	fixed := time.Now()
	i.now = func() time.Time { return fixed }

	a, err := i.Sign(KindRefresh, 1, "a@x.com")
	require.NoError(t, err)
	b, err := i.Sign(KindRefresh, 1, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestClaims_UserID_BadSubject(t *testing.T) {
	t.Parallel()

	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}}
	_, err := c.UserID()
	assert.True(t, errors.Is(err, common.ErrInvalidSignature))
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "access", KindAccess.String())
	assert.Equal(t, "refresh", KindRefresh.String())
	assert.Equal(t, "unknown", Kind(9).String())
}

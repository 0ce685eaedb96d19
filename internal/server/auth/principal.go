package auth

import "context"

// Principal is the caller identity a bearer guard extracted from a verified
// token. RefreshToken is only set when the guard checked a refresh token.
type Principal struct {
	UserID       int64
	Email        string
	RefreshToken string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

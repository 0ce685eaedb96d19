// Package models holds the server-side persistent records.
package models

import "time"

// User is a locally registered account.
//
// RefreshTokenHash is nil when the user never signed in or has logged out;
// otherwise it is the hash of the most recently issued refresh token.
type User struct {
	ID               int64
	Email            string
	PasswordHash     string
	RefreshTokenHash *string
	CreatedAt        time.Time
}

// HasRefreshHash reports whether a refresh token is currently outstanding.
func (u *User) HasRefreshHash() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}

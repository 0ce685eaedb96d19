// Package common contains shared constants and sentinel errors used across
// authkeeper components.
package common

// AuthorizationHeaderName is the HTTP header carrying bearer tokens.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the auth scheme prefix expected in AuthorizationHeaderName.
const BearerScheme = "Bearer"

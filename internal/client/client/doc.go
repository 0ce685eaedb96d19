// Package client talks to the authkeeper HTTP API.
//
// APIClient keeps the current token pair in memory. Calls that need an
// access token retry once after a transparent refresh when the server
// rejects the access token, so a long-idle session keeps working as long
// as its refresh token is still valid.
//
// Failures are reported as sentinel errors that callers match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrForbidden, ErrBadRequest,
// ErrNotSignedIn.
package client

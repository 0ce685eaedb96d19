package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenPair mirrors the server's token response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Identity is what the client can read from its access token without
// verifying it. It is for display only.
type Identity struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type apiError struct {
	Error string `json:"error"`
}

// APIClient is safe for concurrent use.
type APIClient struct {
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	tokens TokenPair
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SignUp registers a new account and keeps the returned tokens.
func (c *APIClient) SignUp(ctx context.Context, email string, password []byte) error {
	return c.authenticate(ctx, "/auth/local/signup", email, password)
}

// SignIn authenticates and keeps the returned tokens.
func (c *APIClient) SignIn(ctx context.Context, email string, password []byte) error {
	return c.authenticate(ctx, "/auth/local/signin", email, password)
}

func (c *APIClient) authenticate(ctx context.Context, path, email string, password []byte) error {
	body, err := json.Marshal(credentials{Email: email, Password: string(password)})
	if err != nil {
		return err
	}

	var pair TokenPair
	if err := c.do(ctx, path, body, "", &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

// Refresh exchanges the stored refresh token for a new pair.
func (c *APIClient) Refresh(ctx context.Context) error {
	rt := c.Tokens().RefreshToken
	if rt == "" {
		return ErrNotSignedIn
	}

	var pair TokenPair
	if err := c.do(ctx, "/auth/refresh", nil, rt, &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

// Logout ends the server-side session and forgets local tokens. An expired
// access token is refreshed once before giving up.
func (c *APIClient) Logout(ctx context.Context) error {
	at := c.Tokens().AccessToken
	if at == "" {
		return ErrNotSignedIn
	}

	err := c.do(ctx, "/auth/logout", nil, at, nil)
	if errors.Is(err, ErrUnauthorized) {
		if rerr := c.Refresh(ctx); rerr != nil {
			return err
		}
		err = c.do(ctx, "/auth/logout", nil, c.Tokens().AccessToken, nil)
	}
	if err != nil {
		return err
	}

	c.setTokens(TokenPair{})
	return nil
}

// Ping checks the server health endpoint.
func (c *APIClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return ErrUnavailable
	}
	return nil
}

func (c *APIClient) Tokens() TokenPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *APIClient) setTokens(p TokenPair) {
	c.mu.Lock()
	c.tokens = p
	c.mu.Unlock()
}

// SignedIn reports whether the client holds a token pair.
func (c *APIClient) SignedIn() bool {
	return c.Tokens().AccessToken != ""
}

// Identity decodes the current access token without checking its
// signature; only the server can do that.
func (c *APIClient) Identity() (*Identity, error) {
	at := c.Tokens().AccessToken
	if at == "" {
		return nil, ErrNotSignedIn
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(at, claims); err != nil {
		return nil, err
	}

	id := &Identity{}
	id.UserID, _ = claims.GetSubject()
	id.Email, _ = claims["email"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

// do POSTs body to path and decodes a JSON response into out when out is
// non-nil. bearer, when set, is sent in the Authorization header.
func (c *APIClient) do(ctx context.Context, path string, body []byte, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var ae apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&ae)
	msg := ae.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, msg)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, msg)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
}

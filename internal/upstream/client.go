// Package upstream re-establishes sessions with the ChatGPT provider to
// obtain fresh access and session tokens for stored accounts.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yicone/chatgpt-web-share/internal/util"
)

var (
	// ErrNoCredentials means the account holds neither a session token,
	// an access token, nor a password. Rotation skips such accounts.
	ErrNoCredentials = errors.New("no usable credentials")

	// ErrAuthFailed wraps provider-side authentication failures.
	// Per-account, non-fatal: rotation logs it and moves on.
	ErrAuthFailed = errors.New("upstream authentication failed")
)

const sessionCookieName = "__Secure-next-auth.session-token"

// Credentials is everything known about one account when rotation starts.
type Credentials struct {
	Email        string
	Password     string
	AccessToken  string
	SessionToken string
}

// Session is the outcome of a successful re-authentication. Tokens may be
// byte-identical to the stored ones; rotation compares before persisting.
type Session struct {
	AccessToken  string
	SessionToken string
}

// Authenticator re-establishes an upstream session for one account.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)
}

// Client talks to the ChatGPT provider's auth endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an upstream auth client for the given base URL
// (chatgpt_base_url config value).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Authenticate tries the strongest credential first: an existing session
// token refreshes the session cookie-style; failing that an access token is
// validated as a bearer; failing that the password login flow runs.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	switch {
	case creds.SessionToken != "":
		return c.refreshSession(ctx, creds)
	case creds.AccessToken != "":
		return c.validateAccessToken(ctx, creds)
	case creds.Password != "":
		return c.passwordLogin(ctx, creds)
	default:
		return nil, ErrNoCredentials
	}
}

type sessionResponse struct {
	AccessToken string `json:"accessToken"`
}

// refreshSession exchanges the session-token cookie for a current access
// token. The provider may rotate the cookie; the rotated value is returned.
func (c *Client) refreshSession(ctx context.Context, creds Credentials) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/session", nil)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: creds.SessionToken})

	parsed, resp, err := c.doSession(req)
	if err != nil {
		return nil, err
	}

	session := &Session{AccessToken: parsed.AccessToken, SessionToken: creds.SessionToken}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName && cookie.Value != "" {
			session.SessionToken = cookie.Value
		}
	}
	return session, nil
}

// validateAccessToken confirms a stored access token is still accepted and
// picks up a replacement if the provider issues one.
func (c *Client) validateAccessToken(ctx context.Context, creds Credentials) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/session", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	parsed, _, err := c.doSession(req)
	if err != nil {
		return nil, err
	}
	token := parsed.AccessToken
	if token == "" {
		token = creds.AccessToken
	}
	return &Session{AccessToken: token}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	SessionToken string `json:"sessionToken"`
}

// passwordLogin performs the full login flow. Slowest path, only used when
// no token material survives.
func (c *Client) passwordLogin(ctx context.Context, creds Credentials) (*Session, error) {
	body, err := json.Marshal(loginRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, fmt.Errorf("%w: login status %d: %s", ErrAuthFailed, resp.StatusCode, util.TruncateBytes(text))
	}

	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if parsed.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response missing accessToken", ErrAuthFailed)
	}
	return &Session{AccessToken: parsed.AccessToken, SessionToken: parsed.SessionToken}, nil
}

func (c *Client) doSession(req *http.Request) (*sessionResponse, *http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, nil, fmt.Errorf("%w: session status %d: %s", ErrAuthFailed, resp.StatusCode, util.TruncateBytes(text))
	}

	var parsed sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if parsed.AccessToken == "" {
		return nil, nil, fmt.Errorf("%w: session response missing accessToken", ErrAuthFailed)
	}
	return &parsed, resp, nil
}

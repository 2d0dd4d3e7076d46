package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/yicone/chatgpt-web-share/internal/util"
)

var (
	// ErrRefreshFailed wraps a non-200 response from the refresh endpoint.
	// Per-account, non-fatal: the caller keeps the old puid until next tick.
	ErrRefreshFailed = errors.New("puid refresh failed")

	// ErrMalformedResponse means the endpoint answered 200 without a puid.
	ErrMalformedResponse = errors.New("malformed puid refresh response")
)

// RefreshClient talks to the running reverse proxy over its local control
// endpoint to obtain a refreshed puid for one account.
type RefreshClient struct {
	handle     *Handle
	baseURL    string
	httpClient *http.Client
}

// NewRefreshClient builds a client bound to the supervisor's handle.
// All requests are skipped while the handle is not alive.
func NewRefreshClient(handle *Handle, port int) *RefreshClient {
	return &RefreshClient{
		handle:     handle,
		baseURL:    fmt.Sprintf("http://localhost:%d", port),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type refreshRequest struct {
	AccessToken string `json:"access_token"`
	PUID        string `json:"puid"`
}

type refreshResponse struct {
	PUID string `json:"puid"`
}

// Refresh asks the proxy for a fresh puid. Returns ("", nil) when the proxy
// is not running: the feature is operator-optional and skipping is not an
// error. No retry is performed here; the rotation cadence is the retry
// window.
func (c *RefreshClient) Refresh(ctx context.Context, email, accessToken, puid string) (string, error) {
	if !c.handle.Alive() {
		return "", nil
	}

	log.Printf("Refreshing puid for %s.", email)

	body, err := json.Marshal(refreshRequest{AccessToken: accessToken, PUID: puid})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/refresh_puid", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return "", fmt.Errorf("%w: status %d: %s", ErrRefreshFailed, resp.StatusCode, util.TruncateBytes(text))
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.PUID == "" {
		return "", fmt.Errorf("%w: missing puid field", ErrMalformedResponse)
	}

	log.Printf("Successfully refreshed puid for %s.", email)
	return parsed.PUID, nil
}

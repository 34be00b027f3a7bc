// Package client is the tab-side HTTP client for the daybard daemon. It
// speaks the /v1 message contract and doubles as the liveness probe behind
// the guard: a dead daemon surfaces as a connection-refused error, which the
// guard treats as an invalidated runtime.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yourname/daybar/internal"
)

// Client talks to one daemon instance on behalf of one tab.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	TabID      string

	logger internal.Logger
}

func New(baseURL, token string, logger internal.Logger) *Client {
	if logger == nil {
		logger = internal.NopLogger{}
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type envelope struct {
	Action  string `json:"action"`
	TabID   string `json:"tab_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		msg := "request failed"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, msg)
	}
	if out != nil && len(parsed.Data) > 0 {
		return json.Unmarshal(parsed.Data, out)
	}
	return nil
}

func (c *Client) send(ctx context.Context, action string, payload any, out any) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/message", envelope{
		Action:  action,
		TabID:   c.TabID,
		Payload: payload,
	}, out)
}

// Alive pings the daemon. It is the guard's liveness probe, so it must be
// cheap and never panic.
func (c *Client) Alive() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var out struct {
		Pong bool `json:"pong"`
	}
	if err := c.send(ctx, "ping", nil, &out); err != nil {
		return false
	}
	return out.Pong
}

// Attach registers this client as a tab and remembers the assigned id.
func (c *Client) Attach(ctx context.Context) (hidden bool, err error) {
	var out struct {
		TabID  string `json:"tab_id"`
		Hidden bool   `json:"hidden"`
	}
	body := map[string]string{}
	if c.TabID != "" {
		body["tab_id"] = c.TabID
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tabs", body, &out); err != nil {
		return false, err
	}
	c.TabID = out.TabID
	return out.Hidden, nil
}

// Detach unregisters the tab.
func (c *Client) Detach(ctx context.Context) error {
	if c.TabID == "" {
		return nil
	}
	return c.doJSON(ctx, http.MethodDelete, "/v1/tabs/"+c.TabID, nil, nil)
}

// Navigated reports a page load for this tab.
func (c *Client) Navigated(ctx context.Context) error {
	if c.TabID == "" {
		return errors.New("not attached")
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/tabs/"+c.TabID+"/navigated", nil, nil)
}

// PollEvents long-polls this tab's push queue for up to wait.
func (c *Client) PollEvents(ctx context.Context, wait time.Duration) ([]internal.TabEvent, error) {
	if c.TabID == "" {
		return nil, errors.New("not attached")
	}
	var out struct {
		Events []internal.TabEvent `json:"events"`
	}
	path := fmt.Sprintf("/v1/tabs/%s/events?wait=%s", c.TabID, wait)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// NotifyVisibility relays a locally-made visibility change so the other tabs
// get it pushed. Satisfies the overlay's SyncNotifier.
func (c *Client) NotifyVisibility(ctx context.Context, hidden bool) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.send(ctx, "toggleProgressBar", map[string]any{"hidden": hidden}, &out)
}

// ApplySyncedVisibility mirrors a change that originated from another tab
// without writing it back or re-broadcasting it.
func (c *Client) ApplySyncedVisibility(ctx context.Context, hidden bool) error {
	return c.send(ctx, "toggleProgressBar", map[string]any{
		"hidden":               hidden,
		"from_background_sync": true,
	}, nil)
}

// CheckFeature asks the gate whether a feature is enabled.
func (c *Client) CheckFeature(ctx context.Context, feature string) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.send(ctx, "checkFeature", map[string]string{"feature": feature}, &out); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

// UserStatus fetches the aggregate pro/trial status.
func (c *Client) UserStatus(ctx context.Context) (internal.UserStatus, error) {
	var out internal.UserStatus
	err := c.send(ctx, "get-user-status", nil, &out)
	return out, err
}

// StartTrial requests the one-shot trial grant.
func (c *Client) StartTrial(ctx context.Context, userID, email string) (ok bool, message string, err error) {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.send(ctx, "start-trial", map[string]string{"user_id": userID, "email": email}, &out); err != nil {
		return false, "", err
	}
	return out.Success, out.Message, nil
}

// TrialStatus fetches the current trial window.
func (c *Client) TrialStatus(ctx context.Context) (internal.TrialStatus, error) {
	var out internal.TrialStatus
	err := c.send(ctx, "get-trial-status", nil, &out)
	return out, err
}

// ActivateLicense validates and stores a license key.
func (c *Client) ActivateLicense(ctx context.Context, key string) (ok bool, message string, err error) {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.send(ctx, "activate-license", map[string]string{"key": key}, &out); err != nil {
		return false, "", err
	}
	return out.Success, out.Message, nil
}

// CreateCheckout asks for a hosted checkout URL for the upgrade flow.
func (c *Client) CreateCheckout(ctx context.Context, email string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.send(ctx, "create-checkout", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// CompleteAuth forwards an externally obtained session and token.
func (c *Client) CompleteAuth(ctx context.Context, session internal.AuthSession, token string) error {
	return c.send(ctx, "auth-completed", map[string]any{"session": session, "token": token}, nil)
}

// SignOut clears the cached session.
func (c *Client) SignOut(ctx context.Context) error {
	return c.send(ctx, "sign-out", nil, nil)
}

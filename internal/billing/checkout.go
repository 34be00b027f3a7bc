// Package billing holds thin clients for the external checkout and license
// validation collaborators. The overlay never depends on these succeeding.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yourname/daybar/internal"
)

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, priceID, email string) (string, error)
}

// CheckoutClient talks to the external checkout service.
type CheckoutClient struct {
	ServiceURL string
	HTTPClient *http.Client
	logger     internal.Logger
}

func NewCheckoutClient(url string, logger internal.Logger) *CheckoutClient {
	if logger == nil {
		logger = internal.NopLogger{}
	}
	return &CheckoutClient{
		ServiceURL: url,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// CreateSession returns the URL the user should be redirected to.
func (c *CheckoutClient) CreateSession(ctx context.Context, priceID, email string) (string, error) {
	body, err := json.Marshal(map[string]string{"price_id": priceID, "email": email})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServiceURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.Errorf("failed to call checkout service: %v", err)
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Errorf("checkout service returned %d", resp.StatusCode)
		return "", errors.New("checkout service returned non-200")
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("checkout service returned no redirect url")
	}
	return out.URL, nil
}

var _ CheckoutProvider = (*CheckoutClient)(nil)

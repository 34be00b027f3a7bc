package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yourname/daybar/internal"
)

// Validation is the license service's verdict on a key.
type Validation struct {
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// LicenseValidator checks a license key with the external license service.
type LicenseValidator interface {
	Validate(ctx context.Context, key string) (*Validation, error)
}

// LicenseClient talks to the external license validation endpoint.
type LicenseClient struct {
	ServiceURL string
	HTTPClient *http.Client
	logger     internal.Logger
}

func NewLicenseClient(url string, logger internal.Logger) *LicenseClient {
	if logger == nil {
		logger = internal.NopLogger{}
	}
	return &LicenseClient{
		ServiceURL: url,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *LicenseClient) Validate(ctx context.Context, key string) (*Validation, error) {
	body, err := json.Marshal(map[string]string{"license_key": key})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServiceURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.Errorf("failed to call license service: %v", err)
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Errorf("license service returned %d", resp.StatusCode)
		return nil, errors.New("license service returned non-200")
	}

	var out Validation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

var _ LicenseValidator = (*LicenseClient)(nil)

// LocalLicenseValidator is the development stand-in. It accepts any key of
// at least 8 characters.
// TODO: replace once the license service exposes a sandbox endpoint; the
// length rule exists only so the activation flow can be exercised offline.
type LocalLicenseValidator struct{}

func (LocalLicenseValidator) Validate(ctx context.Context, key string) (*Validation, error) {
	if len(strings.TrimSpace(key)) >= 8 {
		return &Validation{Valid: true}, nil
	}
	return &Validation{Valid: false, Message: "license key is too short"}, nil
}

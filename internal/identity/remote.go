package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yourname/daybar/internal"
)

// RemoteProvider validates tokens against the external identity service.
type RemoteProvider struct {
	AuthServiceURL string
	HTTPClient     *http.Client
	logger         internal.Logger
}

func NewRemoteProvider(url string, logger internal.Logger) *RemoteProvider {
	if logger == nil {
		logger = internal.NopLogger{}
	}
	return &RemoteProvider{
		AuthServiceURL: url,
		HTTPClient:     &http.Client{Timeout: 5 * time.Second},
		logger:         logger,
	}
}

func (p *RemoteProvider) ValidateToken(ctx context.Context, token string) (*internal.AuthSession, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.AuthServiceURL, bytes.NewReader(body))
	if err != nil {
		p.logger.Errorf("failed to create request: %v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		p.logger.Errorf("failed to call identity service: %v", err)
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.logger.Errorf("identity service returned %d", resp.StatusCode)
		return nil, errors.New("identity service returned non-200")
	}

	var session internal.AuthSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		p.logger.Errorf("failed to decode identity response: %v", err)
		return nil, err
	}
	return &session, nil
}

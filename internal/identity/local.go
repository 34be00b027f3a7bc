package identity

import (
	"context"
	"errors"

	"github.com/yourname/daybar/internal"
)

// LocalProvider accepts a single configured token. Development only.
type LocalProvider struct {
	Token  string
	logger internal.Logger
}

func NewLocalProvider(token string, logger internal.Logger) *LocalProvider {
	if logger == nil {
		logger = internal.NopLogger{}
	}
	return &LocalProvider{Token: token, logger: logger}
}

func (p *LocalProvider) ValidateToken(ctx context.Context, token string) (*internal.AuthSession, error) {
	if token == p.Token {
		return &internal.AuthSession{
			UserID:    "u1",
			Email:     "demo@example.com",
			FirstName: "Demo",
			LastName:  "User",
		}, nil
	}
	p.logger.Warnf("invalid token: %s", token)
	return nil, errors.New("invalid token")
}

package identity

import (
	"context"

	"github.com/yourname/daybar/internal"
)

// Provider validates a session token against the identity service and
// returns the session it belongs to.
type Provider interface {
	ValidateToken(ctx context.Context, token string) (*internal.AuthSession, error)
}

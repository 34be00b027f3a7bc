// Package guard wraps calls into the host runtime (storage, cross-process
// messaging) so that a mid-session runtime reload degrades to last-known
// state instead of throwing into the render loop.
package guard

import (
	"context"
	"errors"
	"strings"

	"github.com/yourname/daybar/internal"
)

// ErrContextInvalidated is the failure signature of a runtime whose handle
// became unusable mid-session (daemon restarted, channel torn down).
var ErrContextInvalidated = errors.New("runtime context invalidated")

// Signatures matched against error text coming back from the runtime surface.
var invalidatedSignatures = []string{
	"context invalidated",
	"connection refused",
	"runtime is shutting down",
}

// IsContextInvalidated reports whether err carries the invalidated-context
// signature.
func IsContextInvalidated(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrContextInvalidated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range invalidatedSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Guard is the sole path components use to touch the runtime surface.
type Guard struct {
	alive  func() bool
	logger internal.Logger
}

// New builds a Guard. alive is a cheap liveness probe; nil means always alive.
func New(alive func() bool, logger internal.Logger) *Guard {
	if alive == nil {
		alive = func() bool { return true }
	}
	if logger == nil {
		logger = internal.NopLogger{}
	}
	return &Guard{alive: alive, logger: logger}
}

// Alive reports the current liveness of the wrapped runtime.
func (g *Guard) Alive() bool { return g.alive() }

// Call runs op, degrading to fallback when the runtime is dead or op fails
// with the invalidated-context signature. Unrelated errors propagate.
func Call[T any](g *Guard, ctx context.Context, fallback T, op func(context.Context) (T, error)) (T, error) {
	if !g.alive() {
		g.logger.Debugf("guard: runtime not alive, returning fallback")
		return fallback, nil
	}
	v, err := op(ctx)
	if err != nil {
		if IsContextInvalidated(err) {
			g.logger.Debugf("guard: context invalidated, returning fallback: %v", err)
			return fallback, nil
		}
		return fallback, err
	}
	return v, nil
}

// Do is Call for operations with no result.
func Do(g *Guard, ctx context.Context, op func(context.Context) error) error {
	_, err := Call(g, ctx, struct{}{}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

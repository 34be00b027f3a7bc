package client_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/api"
	"github.com/yourname/daybar/internal/billing"
	"github.com/yourname/daybar/internal/client"
	"github.com/yourname/daybar/internal/coordinator"
	"github.com/yourname/daybar/internal/feature"
	"github.com/yourname/daybar/internal/guard"
	"github.com/yourname/daybar/internal/identity"
	"github.com/yourname/daybar/internal/storage"
)

const testToken = "MOCK-TOKEN"

func newServer(t *testing.T) (*httptest.Server, *coordinator.Coordinator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	settings, accounts, err := storage.NewFileRepositories(
		filepath.Join(dir, "settings.json"),
		filepath.Join(dir, "account.json"),
		internal.NopLogger{},
	)
	require.NoError(t, err)

	coord := coordinator.New(settings, accounts, nil, internal.NopLogger{}, coordinator.Options{})
	t.Cleanup(coord.Close)

	server := &api.Server{
		Log:      internal.NopLogger{},
		Coord:    coord,
		Features: feature.New(accounts, internal.NopLogger{}),
		Setting:  settings,
		Account:  accounts,
		License:  billing.LocalLicenseValidator{},
		Billing:  billing.NewCheckoutClient("http://127.0.0.1:1/unused", internal.NopLogger{}),
	}

	router := gin.New()
	api.RegisterRoutes(router, server, identity.NewLocalProvider(testToken, internal.NopLogger{}))
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, coord
}

func TestAliveAndAttach(t *testing.T) {
	ts, coord := newServer(t)
	c := client.New(ts.URL, testToken, internal.NopLogger{})

	assert.True(t, c.Alive())

	hidden, err := c.Attach(context.Background())
	require.NoError(t, err)
	assert.False(t, hidden)
	assert.NotEmpty(t, c.TabID)
	assert.Equal(t, 1, coord.TabCount())

	require.NoError(t, c.Detach(context.Background()))
	assert.Equal(t, 0, coord.TabCount())
}

func TestAliveFalseOnBadToken(t *testing.T) {
	ts, _ := newServer(t)
	c := client.New(ts.URL, "wrong", internal.NopLogger{})
	assert.False(t, c.Alive())
}

func TestDeadDaemonReadsAsInvalidatedContext(t *testing.T) {
	c := client.New("http://127.0.0.1:1", testToken, internal.NopLogger{})
	assert.False(t, c.Alive())

	_, err := c.Attach(context.Background())
	require.Error(t, err)
	assert.True(t, guard.IsContextInvalidated(err))
}

func TestVisibilityRoundTrip(t *testing.T) {
	ts, coord := newServer(t)

	origin := client.New(ts.URL, testToken, internal.NopLogger{})
	_, err := origin.Attach(context.Background())
	require.NoError(t, err)

	other := client.New(ts.URL, testToken, internal.NopLogger{})
	_, err = other.Attach(context.Background())
	require.NoError(t, err)

	require.NoError(t, origin.NotifyVisibility(context.Background(), true))
	assert.True(t, coord.Hidden())

	events, err := other.PollEvents(context.Background(), 500*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, internal.EventVisibility, events[0].Type)
	require.NotNil(t, events[0].Hidden)
	assert.True(t, *events[0].Hidden)

	// The originating tab gets nothing back.
	events, err = origin.PollEvents(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTrialFlow(t *testing.T) {
	ts, _ := newServer(t)
	c := client.New(ts.URL, testToken, internal.NopLogger{})

	ok, _, err := c.StartTrial(context.Background(), "u1", "demo@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, msg, err := c.StartTrial(context.Background(), "u1", "demo@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, msg)

	status, err := c.TrialStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsActive)

	enabled, err := c.CheckFeature(context.Background(), internal.FeatureCountdown)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestLicenseAndUserStatus(t *testing.T) {
	ts, _ := newServer(t)
	c := client.New(ts.URL, testToken, internal.NopLogger{})

	us, err := c.UserStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, us.IsPro)

	ok, _, err := c.ActivateLicense(context.Background(), "ABCD-EFGH-1234")
	require.NoError(t, err)
	assert.True(t, ok)

	us, err = c.UserStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, us.IsPro)
}

package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/coordinator"
)

var validate = validator.New()

// Envelope is the wire form of a message-contract request. TabID names the
// tab the request originated from, when there is one.
type Envelope struct {
	Action  string          `json:"action" binding:"required"`
	TabID   string          `json:"tab_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// actionHandler resolves one action. Payload decoding and validation live in
// each entry so the table declares its own request/response shapes.
type actionHandler func(c *gin.Context, app App, env *Envelope) (any, error)

// actionTable is the single dispatch point for the message contract.
var actionTable = map[string]actionHandler{
	"ping":                   handlePing,
	"toggleProgressBar":      handleToggleProgressBar,
	"updateProgressBarState": handleUpdateProgressBarState,
	"checkFeature":           handleCheckFeature,
	"openSettingsPanel":      handleOpenSettingsPanel,
	"get-user-status":        handleGetUserStatus,
	"start-trial":            handleStartTrial,
	"get-trial-status":       handleGetTrialStatus,
	"auth-completed":         handleAuthCompleted,
	"sign-out":               handleSignOut,
	"activate-license":       handleActivateLicense,
	"create-checkout":        handleCreateCheckout,
}

// PostMessage dispatches an action envelope through the handler table.
func PostMessage(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var env Envelope
		if err := c.ShouldBindJSON(&env); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid message envelope")
			return
		}

		handler, ok := actionTable[env.Action]
		if !ok {
			HandleError(c, app.Logger(), errors.New(env.Action), 400, "Unknown action")
			return
		}

		data, err := handler(c, app, &env)
		if err != nil {
			HandleError(c, app.Logger(), err, statusOf(err), "Action "+env.Action+" failed")
			return
		}
		HandleSuccess(c, app.Logger(), data, nil)
	}
}

func decodePayload(env *Envelope, out any) error {
	if len(env.Payload) == 0 {
		return internal.NewAppError(400, "missing payload")
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return internal.NewAppError(400, "malformed payload: "+err.Error())
	}
	if err := validate.Struct(out); err != nil {
		return internal.NewAppError(400, err.Error())
	}
	return nil
}

// --- handlers ---

func handlePing(c *gin.Context, app App, env *Envelope) (any, error) {
	return gin.H{"pong": true}, nil
}

type toggleRequest struct {
	Hidden             bool `json:"hidden"`
	FromBackgroundSync bool `json:"from_background_sync"`
}

// toggleProgressBar applies a visibility change. A sync-originated change is
// applied to the mirror only; anything else persists and fans out to the
// other tabs.
func handleToggleProgressBar(c *gin.Context, app App, env *Envelope) (any, error) {
	var req toggleRequest
	if err := decodePayload(env, &req); err != nil {
		return nil, err
	}

	coord := app.Coordinator()
	if req.FromBackgroundSync {
		return gin.H{"success": true}, coord.SetVisibilityMirrorOnly(req.Hidden)
	}
	if err := coord.SetVisibility(c.Request.Context(), req.Hidden); err != nil {
		return nil, err
	}
	coord.BroadcastVisibility(env.TabID)
	return gin.H{"success": true}, nil
}

type updateStateRequest struct {
	Hidden bool `json:"hidden"`
}

// updateProgressBarState persists the flag and updates the coordinator's
// memory without broadcasting.
func handleUpdateProgressBarState(c *gin.Context, app App, env *Envelope) (any, error) {
	var req updateStateRequest
	if err := decodePayload(env, &req); err != nil {
		return nil, err
	}
	if err := app.Coordinator().SetVisibility(c.Request.Context(), req.Hidden); err != nil {
		return nil, err
	}
	return gin.H{"success": true}, nil
}

type checkFeatureRequest struct {
	Feature string `json:"feature" validate:"required"`
}

func handleCheckFeature(c *gin.Context, app App, env *Envelope) (any, error) {
	var req checkFeatureRequest
	if err := decodePayload(env, &req); err != nil {
		return nil, err
	}
	enabled := app.Gate().IsEnabled(c.Request.Context(), req.Feature)
	return gin.H{"enabled": enabled}, nil
}

// openSettingsPanel asks the originating tab (or every tab) to open its
// settings panel.
func handleOpenSettingsPanel(c *gin.Context, app App, env *Envelope) (any, error) {
	app.Coordinator().PushOpenSettings(env.TabID)
	return gin.H{"success": true}, nil
}

func handleGetUserStatus(c *gin.Context, app App, env *Envelope) (any, error) {
	return app.Coordinator().UserStatus(c.Request.Context())
}

type startTrialRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

func handleStartTrial(c *gin.Context, app App, env *Envelope) (any, error) {
	var req startTrialRequest
	if err := decodePayload(env, &req); err != nil {
		return nil, err
	}
	trial, err := app.Coordinator().StartTrial(c.Request.Context(), req.UserID, req.Email)
	if err != nil {
		if errors.Is(err, coordinator.ErrTrialUsed) {
			return gin.H{"success": false, "message": err.Error()}, nil
		}
		return nil, err
	}
	return gin.H{"success": true, "trial_start_time": trial.StartTime}, nil
}

func handleGetTrialStatus(c *gin.Context, app App, env *Envelope) (any, error) {
	status, err := app.Coordinator().TrialStatus(c.Request.Context())
	if err != nil {
		return nil, err
	}
	out := gin.H{"success": true, "is_active": status.IsActive}
	if status.TrialStartTime != nil {
		out["trial_start_time"] = status.TrialStartTime
		out["trial_end_time"] = status.TrialEndTime
	}
	return out, nil
}

type authCompletedRequest struct {
	Session internal.AuthSession `json:"session" validate:"required"`
	Token   string               `json:"token" validate:"required"`
}

func handleAuthCompleted(c *gin.Context, app App, env *Envelope) (any, error) {
	var req authCompletedRequest
	if err := decodePayload(env, &req); err != nil {
		return nil, err
	}
	session := req.Session
	if err := app.Coordinator().ApplyAuthCompletion(c.Request.Context(), &session, req.Token); err != nil {
		return nil, err
	}
	return gin.H{"success": true}, nil
}

func handleSignOut(c *gin.Context, app App, env *Envelope) (any, error) {
	if err := app.Coordinator().ClearAuth(c.Request.Context()); err != nil {
		return nil, err
	}
	return gin.H{"success": true}, nil
}

type activateLicenseRequest struct {
	Key string `json:"key" validate:"required"`
}

func handleActivateLicense(c *gin.Context, app App, env *Envelope) (any, error) {
	var req activateLicenseRequest
	if err := decodePayload(env, &req); err != nil {
		return nil, err
	}

	verdict, err := app.Licenses().Validate(c.Request.Context(), req.Key)
	if err != nil {
		return nil, internal.NewAppError(502, "license service unavailable: "+err.Error())
	}
	if !verdict.Valid {
		return gin.H{"success": false, "message": verdict.Message}, nil
	}

	lic := &internal.License{Key: req.Key, ActivatedAt: time.Now(), ExpiresAt: verdict.ExpiresAt}
	if err := app.Coordinator().ApplyLicense(c.Request.Context(), lic); err != nil {
		return nil, err
	}
	return gin.H{"success": true}, nil
}

type createCheckoutRequest struct {
	PriceID string `json:"price_id"`
	Email   string `json:"email" validate:"required,email"`
}

func handleCreateCheckout(c *gin.Context, app App, env *Envelope) (any, error) {
	var req createCheckoutRequest
	if err := decodePayload(env, &req); err != nil {
		return nil, err
	}
	priceID := req.PriceID
	if priceID == "" {
		priceID = app.CheckoutPriceID()
	}
	url, err := app.Checkout().CreateSession(c.Request.Context(), priceID, req.Email)
	if err != nil {
		return nil, internal.NewAppError(502, "checkout service unavailable: "+err.Error())
	}
	return gin.H{"success": true, "url": url}, nil
}

package api

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/daybar/internal"
)

const (
	defaultPollWait = 25 * time.Second
	maxPollWait     = 55 * time.Second
)

type registerTabRequest struct {
	TabID string `json:"tab_id"`
}

// PostTab registers a tab session and returns its id. Re-registering an id
// replaces the previous session, which is what a reloaded page wants.
func PostTab(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerTabRequest
		// A bodyless POST registers with a generated id.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			HandleError(c, app.Logger(), err, 400, "Invalid tab registration")
			return
		}
		id, _ := app.Coordinator().RegisterTab(req.TabID)
		HandleSuccess(c, app.Logger(), gin.H{"tab_id": id, "hidden": app.Coordinator().Hidden()}, nil)
	}
}

// DeleteTab drops a tab session.
func DeleteTab(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		app.Coordinator().UnregisterTab(c.Param("id"))
		HandleSuccess(c, app.Logger(), gin.H{"success": true}, nil)
	}
}

// GetTabEvents is the long-poll surface. It blocks until an event arrives,
// the wait window elapses, or the client goes away, then drains whatever
// else is already queued so a burst arrives as one response.
func GetTabEvents(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		events, ok := app.Coordinator().TabEvents(id)
		if !ok {
			HandleError(c, app.Logger(), errors.New(id), 404, "Unknown tab")
			return
		}

		wait := defaultPollWait
		if raw := c.Query("wait"); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil && d > 0 {
				wait = min(d, maxPollWait)
			}
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()

		out := make([]internal.TabEvent, 0, 4)
		select {
		case ev := <-events:
			out = append(out, ev)
		case <-timer.C:
		case <-c.Request.Context().Done():
			return
		}

	drain:
		for {
			select {
			case ev := <-events:
				out = append(out, ev)
			default:
				break drain
			}
		}
		HandleSuccess(c, app.Logger(), gin.H{"events": out}, nil)
	}
}

// PostTabNavigated is the per-tab page-load hook.
func PostTabNavigated(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		app.Coordinator().TabNavigated(c.Param("id"))
		HandleSuccess(c, app.Logger(), gin.H{"success": true}, nil)
	}
}

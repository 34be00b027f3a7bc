package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yourname/daybar/internal/identity"
)

// RegisterRoutes wires the message contract and the tab surface onto the
// router. Everything under /v1 sits behind the bearer check; /healthz stays
// open for liveness probes.
func RegisterRoutes(r *gin.Engine, app App, provider identity.Provider) {
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.Use(AuthMiddleware(provider))
	{
		v1.POST("/message", PostMessage(app))

		v1.POST("/tabs", PostTab(app))
		v1.DELETE("/tabs/:id", DeleteTab(app))
		v1.GET("/tabs/:id/events", GetTabEvents(app))
		v1.POST("/tabs/:id/navigated", PostTabNavigated(app))
	}
}

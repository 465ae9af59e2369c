package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/otpauth/internal/app"
	"github.com/charlesng35/otpauth/internal/handlers"
	"github.com/charlesng35/otpauth/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, manager *monitoring.HealthManager) error {
	if !cfg.Monitoring.Health.Enabled || manager == nil {
		r.GET("/health", disabledHealthHandler)
		r.GET("/health/live", disabledHealthHandler)
		return nil
	}

	handler, err := handlers.NewHealthHandler(manager)
	if err != nil {
		return err
	}

	r.GET("/health", handler.Health)
	r.GET("/health/live", handler.Live)
	return nil
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"healthy": false,
		"status":  "disabled",
	})
}

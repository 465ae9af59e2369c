package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/otpauth/internal/app"
	iauth "github.com/charlesng35/otpauth/internal/auth"
	"github.com/charlesng35/otpauth/internal/handlers"
	"github.com/charlesng35/otpauth/internal/middleware"
	"github.com/charlesng35/otpauth/internal/monitoring"
	"github.com/charlesng35/otpauth/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers the auth,
// health and metrics routes.
func NewRouter(svc *services.PasscodeAuthService, jwt *iauth.JWTService, cfg *app.Config, health *monitoring.HealthManager) (*gin.Engine, error) {
	if svc == nil {
		return nil, fmt.Errorf("passcode service must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.FrontendURL))

	if err := registerHealthRoutes(r, cfg, health); err != nil {
		return nil, err
	}

	authHandler, err := handlers.NewAuthHandler(svc)
	if err != nil {
		return nil, err
	}
	registerAuthRoutes(r, authHandler, middleware.Auth(jwt))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

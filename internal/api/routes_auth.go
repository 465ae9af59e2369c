package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/otpauth/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, handler *handlers.AuthHandler, requireAuth gin.HandlerFunc) {
	auth := engine.Group("/api/auth")
	{
		auth.POST("/send-otp", handler.SendOTP)
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.POST("/admin/login", handler.AdminLogin)
	}

	auth.GET("/me", requireAuth, handler.Me)
}

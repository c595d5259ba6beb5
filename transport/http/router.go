package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, tokenizer ports.Tokenizer, cfg service.Config, limiter *RateLimiter) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService, tokenizer, cfg)

	// Auth routes
	auth := router.Group("/auth")
	if limiter != nil {
		auth.Use(limiter.Middleware())
	}
	{
		auth.POST("/login", handlers.Login)
		auth.GET("/nonce/:address", handlers.Nonce)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(tokenizer))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}

package routes

import (
	"github.com/gin-gonic/gin"

	"linkpulse-be/internal/controllers"
	"linkpulse-be/internal/jwt"
	"linkpulse-be/internal/logging"
	"linkpulse-be/internal/metrics"
	"linkpulse-be/internal/middleware"
)

// Handlers groups the controllers mounted by New.
type Handlers struct {
	Auth      *controllers.AuthController
	Shortener *controllers.ShortenerController
	QRCode    *controllers.QRCodeController
	Redirect  *controllers.RedirectController
	Realtime  *controllers.RealtimeController
	Health    *controllers.HealthController
}

// Limiters holds the per-IP rate limiters. A nil limiter disables limiting
// for its routes.
type Limiters struct {
	General  *middleware.RateLimiter
	Auth     *middleware.RateLimiter
	Shorten  *middleware.RateLimiter
	Redirect *middleware.RateLimiter
}

func limit(rl *middleware.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.LimitMiddleware()
}

// New builds the HTTP router.
func New(h Handlers, l Limiters, tokens *jwt.JWTService, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.ZapGinLogger(logging.Logger),
		middleware.CorsMiddleware(corsOrigins),
		middleware.ErrorMiddleware(),
	)

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/r/:code", limit(l.Redirect), h.Redirect.Redirect)

	auth := middleware.AuthMiddleware(tokens)
	router.GET("/ws", auth, h.Realtime.Connect)

	api := router.Group("/api/v1")
	api.Use(limit(l.General))
	{
		authGroup := api.Group("/auth")
		authGroup.Use(limit(l.Auth))
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/logout", h.Auth.Logout)
		}
		api.GET("/auth/me", auth, h.Auth.Me)

		api.GET("/redirect/:shortCode", limit(l.Redirect), h.Redirect.ResolveJSON)

		protected := api.Group("")
		protected.Use(auth)
		{
			protected.POST("/shorten", limit(l.Shorten), h.Shortener.CreateShortURL)

			protected.GET("/urls", h.Shortener.GetUserURLs)
			protected.GET("/url/:shortCode", h.Shortener.GetURL)
			protected.PATCH("/url/:shortCode", h.Shortener.UpdateURL)
			protected.DELETE("/url/:shortCode", h.Shortener.DeleteURL)
			protected.GET("/url/:shortCode/analytics", h.Shortener.GetClickAnalytics)
			protected.GET("/url/:shortCode/clicks", h.Shortener.GetRecentClicks)
			protected.GET("/url/:shortCode/qr", h.QRCode.GenerateQRCode)
			protected.GET("/analytics/overview", h.Shortener.GetOverview)
		}
	}

	return router
}

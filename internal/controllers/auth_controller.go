package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkpulse-be/internal/middleware"
	"linkpulse-be/internal/models"
	"linkpulse-be/internal/service"
)

type AuthController struct {
	authService  service.AuthService
	cookieTTL    time.Duration
	secureCookie bool
}

// NewAuthController creates the account endpoints. The session cookie lives
// for cookieTTL and is marked Secure when secureCookie is set.
func NewAuthController(authService service.AuthService, cookieTTL time.Duration, secureCookie bool) *AuthController {
	return &AuthController{
		authService:  authService,
		cookieTTL:    cookieTTL,
		secureCookie: secureCookie,
	}
}

func (ac *AuthController) setSession(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookieName, token, maxAge, "/", "", ac.secureCookie, true)
}

// Register handles POST /api/v1/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := ac.authService.Register(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ac.setSession(c, response.User.Token, int(ac.cookieTTL/time.Second))
	c.JSON(http.StatusCreated, response)
}

// Login handles POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := ac.authService.Login(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ac.setSession(c, response.Token, int(ac.cookieTTL/time.Second))
	c.JSON(http.StatusOK, response)
}

// Logout handles POST /api/v1/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	ac.setSession(c, "", -1)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out",
	})
}

// Me handles GET /api/v1/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.authService.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}

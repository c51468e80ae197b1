package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkpulse-be/internal/apperrors"
	"linkpulse-be/internal/models"
	"linkpulse-be/internal/service"
)

// RedirectController serves public visits to short links.
type RedirectController struct {
	redirects service.RedirectService
}

func NewRedirectController(redirects service.RedirectService) *RedirectController {
	return &RedirectController{redirects: redirects}
}

func visitFrom(c *gin.Context, start time.Time) models.Visit {
	return models.Visit{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
		StartedAt: start,
	}
}

// Redirect handles GET /r/:code
func (rc *RedirectController) Redirect(c *gin.Context) {
	start := time.Now()

	destination, err := rc.redirects.Visit(c.Request.Context(), c.Param("code"), visitFrom(c, start))
	if errors.Is(err, apperrors.ErrNotFound) {
		c.String(http.StatusNotFound, "Short URL not found")
		return
	}
	if err != nil {
		c.String(http.StatusInternalServerError, "Server error")
		return
	}

	// Every visit must reach the counter, so the hop is never cached.
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Redirect(http.StatusFound, destination)
}

// ResolveJSON handles GET /api/v1/redirect/:shortCode. It counts the visit
// like Redirect but answers with the destination as JSON.
func (rc *RedirectController) ResolveJSON(c *gin.Context) {
	start := time.Now()

	destination, err := rc.redirects.Visit(c.Request.Context(), c.Param("shortCode"), visitFrom(c, start))
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Short URL not found or expired",
		})
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"original_url": destination,
	})
}

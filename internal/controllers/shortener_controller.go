package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkpulse-be/internal/apperrors"
	"linkpulse-be/internal/middleware"
	"linkpulse-be/internal/models"
	"linkpulse-be/internal/service"
)

type ShortenerController struct {
	urlService service.URLService
}

func NewShortenerController(urlService service.URLService) *ShortenerController {
	return &ShortenerController{urlService: urlService}
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(apperrors.InvalidRequestError("Invalid request body: " + err.Error()))
}

// CreateShortURL handles POST /api/v1/shorten
func (sc *ShortenerController) CreateShortURL(c *gin.Context) {
	var req models.CreateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if req.ExpiresAt != nil {
		utc := req.ExpiresAt.UTC()
		req.ExpiresAt = &utc
	}

	response, err := sc.urlService.CreateShortURL(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetUserURLs handles GET /api/v1/urls
func (sc *ShortenerController) GetUserURLs(c *gin.Context) {
	urls, err := sc.urlService.GetUserURLs(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, urls)
}

// GetURL handles GET /api/v1/url/:shortCode
func (sc *ShortenerController) GetURL(c *gin.Context) {
	url, err := sc.urlService.GetURL(c.Request.Context(), c.Param("shortCode"), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, url)
}

// UpdateURL handles PATCH /api/v1/url/:shortCode
func (sc *ShortenerController) UpdateURL(c *gin.Context) {
	var req models.UpdateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	url, err := sc.urlService.UpdateURL(c.Request.Context(), c.Param("shortCode"), middleware.GetUserID(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, url)
}

// DeleteURL handles DELETE /api/v1/url/:shortCode
func (sc *ShortenerController) DeleteURL(c *gin.Context) {
	if err := sc.urlService.DeleteURL(c.Request.Context(), c.Param("shortCode"), middleware.GetUserID(c)); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "URL deleted successfully",
	})
}

// GetClickAnalytics handles GET /api/v1/url/:shortCode/analytics?hours=N
func (sc *ShortenerController) GetClickAnalytics(c *gin.Context) {
	hours := queryInt(c, "hours", service.DefaultAnalyticsHours)

	analytics, err := sc.urlService.GetClickAnalytics(c.Request.Context(), c.Param("shortCode"), middleware.GetUserID(c), hours)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// GetRecentClicks handles GET /api/v1/url/:shortCode/clicks?limit=N
func (sc *ShortenerController) GetRecentClicks(c *gin.Context) {
	limit := queryInt(c, "limit", service.MaxRecentClicks)

	clicks, err := sc.urlService.GetRecentClicks(c.Request.Context(), c.Param("shortCode"), middleware.GetUserID(c), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"short_code": c.Param("shortCode"),
		"clicks":     clicks,
	})
}

// GetOverview handles GET /api/v1/analytics/overview
func (sc *ShortenerController) GetOverview(c *gin.Context) {
	overview, err := sc.urlService.GetOverview(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, key string, def int) int {
	if raw := c.Query(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return def
}

package controllers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"linkpulse-be/internal/middleware"
	"linkpulse-be/internal/service"
)

type QRCodeController struct {
	urlService service.URLService
	size       int
}

func NewQRCodeController(urlService service.URLService, size int) *QRCodeController {
	if size <= 0 {
		size = 256
	}
	return &QRCodeController{
		urlService: urlService,
		size:       size,
	}
}

// GenerateQRCode handles GET /api/v1/url/:shortCode/qr. It answers with a
// PNG, or with {"qr": "data:image/png;base64,..."} when format=dataurl.
func (qc *QRCodeController) GenerateQRCode(c *gin.Context) {
	url, err := qc.urlService.GetURL(c.Request.Context(), c.Param("shortCode"), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	pngData, err := qrcode.Encode(url.ShortURL, qrcode.Medium, qc.size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate QR code",
		})
		return
	}

	if c.Query("format") == "dataurl" {
		c.JSON(http.StatusOK, gin.H{
			"short_url": url.ShortURL,
			"qr":        "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData),
		})
		return
	}

	c.Header("Content-Disposition", "inline; filename="+url.ShortCode+".png")
	c.Data(http.StatusOK, "image/png", pngData)
}

package models

import (
	"time"

	"linkpulse-be/internal/entities"
)

// URLResponse is the API view of a short link.
type URLResponse struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	Title       *string    `json:"title,omitempty"`
	Tags        []string   `json:"tags"`
	ClickCount  int64      `json:"click_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// NewURLResponse builds the response for url using shortURL as its public link.
func NewURLResponse(url *entities.URL, shortURL string) URLResponse {
	tags := url.Tags
	if tags == nil {
		tags = []string{}
	}
	return URLResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		ShortURL:    shortURL,
		OriginalURL: url.OriginalURL,
		Title:       url.Title,
		Tags:        tags,
		ClickCount:  url.ClickCount,
		CreatedAt:   url.CreatedAt,
		UpdatedAt:   url.UpdatedAt,
		ExpiresAt:   url.ExpiresAt,
	}
}

// ClickResponse is one entry of a link's recent click log.
type ClickResponse struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	ClickedAt time.Time `json:"clicked_at"`
}

// AnalyticsResponse is the bucketed click history of one link.
type AnalyticsResponse struct {
	ShortCode  string                 `json:"short_code"`
	Hours      int                    `json:"hours"`
	Interval   string                 `json:"interval"`
	TotalCount int64                  `json:"total_clicks"`
	Buckets    []entities.ClickBucket `json:"buckets"`
}

type OverviewResponse struct {
	TotalURLs   int64 `json:"total_urls"`
	TotalClicks int64 `json:"total_clicks"`
}

// ClickNotification is pushed to the owner's live channel after a counted visit.
type ClickNotification struct {
	URLID      string `json:"url_id"`
	ShortCode  string `json:"short_code"`
	ClickCount int64  `json:"click_count"`
}

package models

import "time"

// CreateURLRequest represents the request body for creating a short URL
type CreateURLRequest struct {
	URL       string     `json:"url" binding:"required,url,max=2048"`
	ShortCode *string    `json:"short_code,omitempty" binding:"omitempty,shortcode"`
	Title     *string    `json:"title,omitempty" binding:"omitempty,max=200"`
	Tags      []string   `json:"tags,omitempty" binding:"omitempty,max=20,dive,max=50"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// UpdateURLRequest carries the owner-editable fields. Absent fields are left
// alone; an empty expires_at string clears the expiry.
type UpdateURLRequest struct {
	URL       *string   `json:"url,omitempty" binding:"omitempty,url,max=2048"`
	Title     *string   `json:"title,omitempty" binding:"omitempty,max=200"`
	Tags      *[]string `json:"tags,omitempty" binding:"omitempty,max=20,dive,max=50"`
	ExpiresAt *string   `json:"expires_at,omitempty"`
}

// Visit is the best-effort context captured from one redirect request.
// StartedAt, when set, becomes the click's timestamp.
type Visit struct {
	IPAddress string
	UserAgent string
	Referrer  string
	StartedAt time.Time
}

package entities

import "time"

// URL is a short link owned by exactly one user.
type URL struct {
	ID          string     `json:"id"` // UUID
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	UserID      string     `json:"user_id"` // Owner, UUID
	Title       *string    `json:"title,omitempty"`
	Tags        []string   `json:"tags"`
	ClickCount  int64      `json:"click_count"` // Denormalized; only ever incremented
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // Pointer allows nil (no expiration)
}

// Expired reports whether the link is past its expiry at now.
func (u *URL) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && !u.ExpiresAt.After(now)
}

package entities

import "time"

// Click is one recorded visit to a URL. Context fields are best-effort and
// may be empty.
type Click struct {
	ID        string    `json:"id"` // UUID
	URLID     string    `json:"url_id"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	ClickedAt time.Time `json:"clicked_at"`
}

// ClickBucket counts clicks in one time interval starting at Time.
type ClickBucket struct {
	Time  time.Time `json:"time"`
	Count int64     `json:"count"`
}

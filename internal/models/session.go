package models

import "time"

// Session tracks login state for one identity. Exactly one session exists per
// logged-in identity; a new login supersedes the prior session.
type Session struct {
	ID             string    `json:"id"`
	MobileNumber   string    `json:"mobile_number"`
	LoginAt        time.Time `json:"login_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

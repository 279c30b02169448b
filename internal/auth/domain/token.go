package domain

import "time"

// Session is the token pair handed to a client after a successful login.
// Both tokens travel as HttpOnly cookies.
type Session struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

package core

import "time"

// Session represents an authenticated user session issued after a successful
// wallet login.
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Normalized wallet address of the user
	IssuedAt      time.Time // When the session was created
	AccessExpiry  time.Time // When the access capability expires
	RefreshExpiry time.Time // When the refresh capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

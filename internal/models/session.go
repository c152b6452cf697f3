package models

import "time"

// Session is the durable record behind an issued token. The JWT carries the
// claim token; the row decides whether the token is still honored.
type Session struct {
	ID            string
	UserID        string
	ClaimToken    string
	LastClaimedAt *time.Time
	ExpiresAt     time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

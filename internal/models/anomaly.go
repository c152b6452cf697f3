package models

import "time"

// Anomaly types recorded in the durable ledger.
const (
	AnomalyIPRateLimited   = "ip_ratelimited"
	AnomalyUserRateLimited = "user_login_ratelimited"
)

// Attempt scopes counted by the event store.
const (
	ScopeOrigin  = "origin"
	ScopeAccount = "account"
)

// Anomaly is one durable ledger entry: a permanent origin block
// (type=ip_ratelimited, UserID nil) or an account suspension event
// (type=user_login_ratelimited). Rows are append-only; this service never
// updates or deletes them.
type Anomaly struct {
	ID          string    `json:"id"`
	AnomalyType string    `json:"anomaly_type"`
	UserID      *string   `json:"user_id"`
	IPAddress   *string   `json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnomalyStats aggregates ledger entries for the admin stats view.
type AnomalyStats struct {
	TotalRecentAttempts int `json:"total_recent_attempts"`
	UniqueUsersAffected int `json:"unique_users_affected"`
	UniqueIPsInvolved   int `json:"unique_ips_involved"`
	BlockedIPs          int `json:"blocked_ips"`
}

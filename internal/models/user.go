package models

import "time"

type User struct {
	ID           string
	Email        string
	Username     string
	FullName     *string
	PasswordHash string
	Role         string // "user", "admin"
	IsActive     bool
	IsDeleted    bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

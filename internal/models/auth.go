package models

import "github.com/golang-jwt/jwt/v5"

type TokenClaims struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email,omitempty"`
	ClaimToken string `json:"claim_token,omitempty"`
	jwt.RegisteredClaims
}

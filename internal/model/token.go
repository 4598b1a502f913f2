package model

import "time"

// TokenType discriminates the two credential variants stored in the tokens
// table. The variants are distinct types at the application layer; the table
// mapping lives in the token store only.
type TokenType string

const (
	TokenTypeEmail TokenType = "EMAIL"
	TokenTypeAPI   TokenType = "API"
)

// EmailToken is a short-lived one-time login code delivered out of band.
// Valid transitions one way: true to false on redemption, never back.
type EmailToken struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"emailToken"`
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expiration"`
	CreatedAt time.Time `json:"createdAt"`
}

// APIToken is the long-lived bearer/refresh credential pair issued when an
// email token is redeemed.
type APIToken struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	Valid        bool      `json:"valid"`
	ExpiresAt    time.Time `json:"expiration"`
	CreatedAt    time.Time `json:"createdAt"`
}

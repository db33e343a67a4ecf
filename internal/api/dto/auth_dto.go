package dto

import "time"

// OperatorLoginRequest payload for operator login.
type OperatorLoginRequest struct {
	Operator string `json:"operator" validate:"required,max=64"`
	Key      string `json:"key" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

package dto

import "time"

// SignInRequest payload for POST /auth/sign-in/request.
type SignInRequest struct {
	Email string `json:"email"`
}

// SignInVerifyRequest payload for POST /auth/sign-in/verify.
type SignInVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// AuthResponse describes issued tokens.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

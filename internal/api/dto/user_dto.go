package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-tracker/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandlerLoginRequest is the legacy fixed-credential handler login.
type HandlerLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries an issued token.
type AuthResponse struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandlerSessionResponse carries a legacy session token.
type HandlerSessionResponse struct {
	SessionToken string `json:"session_token"`
}

// UserResponse payload.
type UserResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Status    domain.UserStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

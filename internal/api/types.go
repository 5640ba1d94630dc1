package api

import "github.com/lockerroom/lockerroom/internal/domain/user"

// Wire shapes for the identity endpoints. Fields the server omits stay at
// their zero values; anything beyond these is ignored at the boundary.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	SchoolID string `json:"schoolId,omitempty"`
}

type LoginResponse struct {
	Token                 string        `json:"token"`
	User                  user.User     `json:"user"`
	Profile               *user.Profile `json:"profile,omitempty"`
	RequiresPasswordReset bool          `json:"requiresPasswordReset,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// apiError is the structured error envelope every endpoint uses:
// {"error":{"code":"...","message":"..."}}.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const codeAccountDeactivated = "account_deactivated"

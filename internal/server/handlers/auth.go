package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lockerroom/lockerroom/internal/auth"
	"github.com/lockerroom/lockerroom/internal/config"
	"github.com/lockerroom/lockerroom/internal/domain/user"
	"github.com/lockerroom/lockerroom/internal/repo"
	"github.com/lockerroom/lockerroom/internal/security"
)

type AuthHandler struct {
	users repo.UserStore
	jwt   *auth.Manager
	log   *slog.Logger
}

func NewAuthHandler(users repo.UserStore, jwtManager *auth.Manager, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwtManager,
		log:   log,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=system_admin school_admin student viewer scout"`
	SchoolID string `json:"schoolId"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// identityBody is the success shape of login/signup: the base user plus the
// profile overlay the client merges on top.
func identityBody(token string, acct user.Account) gin.H {
	body := gin.H{
		"token": token,
		"user":  acct.User,
	}

	if acct.SchoolID != "" || acct.ProfilePicURL != "" {
		body["profile"] = user.Profile{
			SchoolID:      acct.SchoolID,
			ProfilePicURL: acct.ProfilePicURL,
		}
	}

	if acct.RequiresPasswordReset || acct.IsOneTimePassword {
		body["requiresPasswordReset"] = true
	}

	return body
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	acct, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(acct.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	if acct.Deactivated {
		RespondForbidden(ctx, "account_deactivated", "This account has been deactivated. Contact your school administrator.")
		return
	}

	token, err := h.jwt.GenerateAccessToken(acct.ID, acct.Email, acct.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, identityBody(token, acct))
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	role := req.Role

	if role == "" {
		// default role for new signups
		role = user.RoleStudent
	}

	acct, err := h.users.Create(cctx, user.Account{
		User: user.User{
			ID:       uuid.NewString(),
			Name:     req.Name,
			Email:    req.Email,
			Role:     role,
			SchoolID: req.SchoolID,
		},
		PasswordHash: hash,
	})

	if err != nil {
		if errors.Is(err, repo.ErrEmailAlreadyUsed) {
			RespondBadRequest(ctx, "Email is already in use.", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.GenerateAccessToken(acct.ID, acct.Email, acct.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusCreated, identityBody(token, acct))
}

// ForgotPassword mints a short-lived reset token. The dev server logs it
// instead of mailing it; the response never reveals whether the email
// exists.
func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	acct, err := h.users.GetByEmail(cctx, req.Email)

	if err == nil {
		resetToken, tokenErr := h.jwt.GenerateResetToken(acct.ID, acct.Email)

		if tokenErr == nil {
			h.log.Info("password reset requested", "email", acct.Email, "resetToken", resetToken)
		}
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	claims, err := h.jwt.VerifyResetToken(req.Token)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_reset_token", "Reset token is invalid or expired.")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	err = h.users.UpdatePassword(cctx, claims.UserID, hash)

	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			RespondUnAuthorized(ctx, "invalid_reset_token", "Reset token is invalid or expired.")
			return
		}

		RespondInternal(ctx, "Could not reset password")
		return
	}

	ctx.Status(http.StatusNoContent)
}

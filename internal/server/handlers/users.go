package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lockerroom/lockerroom/internal/config"
	"github.com/lockerroom/lockerroom/internal/repo"
	"github.com/lockerroom/lockerroom/internal/server/middlewares"
)

type UsersHandler struct {
	users repo.UserStore
}

func NewUsersHandler(users repo.UserStore) *UsersHandler {
	return &UsersHandler{users: users}
}

// Me returns the canonical current-user record. The answer is always served
// no-store: clients bust caches on this endpoint and so do we.
func (h *UsersHandler) Me(ctx *gin.Context) {
	ctx.Header("Cache-Control", "no-store")

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	acct, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			// token outlived the account
			RespondUnAuthorized(ctx, "unauthorized", "Account no longer exists")
			return
		}

		RespondInternal(ctx, "Could not load user")
		return
	}

	if acct.Deactivated {
		RespondForbidden(ctx, "account_deactivated", "This account has been deactivated. Contact your school administrator.")
		return
	}

	ctx.JSON(http.StatusOK, acct.User)
}

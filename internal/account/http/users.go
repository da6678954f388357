package http

import (
	"errors"
	"net/http"

	"github.com/lumehq/accountd/internal/account/service"
	"github.com/lumehq/accountd/pkg/httpx"
	"github.com/lumehq/accountd/pkg/slogx"
)

type UsersHandler struct {
	UserService *service.UserService
}

// HandleMe returns the authenticated user's profile.
//
//	@Summary		Get the current user
//	@Description	Returns the profile of the user the bearer token belongs to.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Response{data=userResponse}
//	@Failure		401	{object}	httpx.Response	"UNAUTHORIZED"
//	@Failure		404	{object}	httpx.Response	"NOT_FOUND"
//	@Router			/v1/users/me [get].
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r)
	if userID == "" {
		httpx.WriteError(w, httpx.ErrInvalidToken)
		return
	}

	user, err := h.UserService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteError(w, httpx.NotFound("user not found"))
			return
		}
		slogx.FromContext(r.Context()).Error("load user failed", "user_id", userID, "error", err)
		httpx.WriteError(w, err)
		return
	}

	// Tokens can outlive the account: a user deactivated after login still
	// carries a valid signature, so the status is rechecked here.
	if !user.CanLogin() {
		httpx.WriteError(w, httpx.NotFound("user not found"))
		return
	}

	httpx.WriteData(w, newUserResponse(user))
}

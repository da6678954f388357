package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lumehq/accountd/internal/account/service"
	"github.com/lumehq/accountd/pkg/httpx"
	"github.com/lumehq/accountd/pkg/jwtx"
	"github.com/lumehq/accountd/pkg/slogx"
)

type AuthHandler struct {
	AuthService *service.AuthService
	Verifier    jwtx.Verifier
}

// HandleRegister creates a pending account and emails the verification link.
//
//	@Summary		Register a new account
//	@Description	Creates an inactive account and sends a verification email. The account cannot log in until the emailed link is used.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		registerRequest	true	"Registration details"
//	@Success		200		{object}	httpx.Response{data=userResponse}
//	@Failure		400		{object}	httpx.Response	"BAD_REQUEST"
//	@Failure		409		{object}	httpx.Response	"ALREADY_EXISTS"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, httpx.BadRequest("invalid request body", ""))
		return
	}
	if msg := req.validate(); msg != "" {
		httpx.WriteError(w, httpx.BadRequest(msg, ""))
		return
	}

	user, err := h.AuthService.Register(r.Context(), service.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, httpx.Conflict("an account with this email already exists"))
		case errors.Is(err, service.ErrAccountExists):
			httpx.WriteError(w, httpx.Conflict("an account with these details already exists"))
		default:
			slogx.FromContext(r.Context()).Error("registration failed", "error", err)
			httpx.WriteError(w, err)
		}
		return
	}

	httpx.WriteData(w, newUserResponse(user))
}

// HandleLogin exchanges credentials for an access/refresh pair.
//
//	@Summary		Log in
//	@Description	Validates email and password and returns an access/refresh token pair sharing one session id.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	httpx.Response{data=domain.TokenPair}
//	@Failure		400		{object}	httpx.Response	"BAD_REQUEST"
//	@Failure		401		{object}	httpx.Response	"UNAUTHORIZED"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, httpx.BadRequest("invalid request body", ""))
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, httpx.BadRequest("email and password are required", ""))
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountNotActive):
			httpx.WriteError(w, httpx.Unauthorized("invalid credentials", ""))
		default:
			slogx.FromContext(r.Context()).Error("login failed", "error", err)
			httpx.WriteError(w, err)
		}
		return
	}

	httpx.WriteData(w, pair)
}

// HandleVerify consumes an emailed verification token.
//
//	@Summary		Verify an email address
//	@Description	Activates the pending account matching the single-use token from the verification email.
//	@Tags			Auth
//	@Produce		json
//	@Param			token	query		string	true	"Verification token"
//	@Success		200		{object}	httpx.Response
//	@Failure		400		{object}	httpx.Response	"INVALID_TOKEN or ALREADY_VERIFIED"
//	@Router			/v1/auth/verify [get].
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	err := h.AuthService.VerifyEmail(r.Context(), token)
	switch {
	case errors.Is(err, service.ErrInvalidVerifyToken):
		httpx.WriteError(w, httpx.BadRequest("invalid verification token", httpx.CodeInvalidToken))
		return
	case errors.Is(err, service.ErrAlreadyVerified):
		httpx.WriteError(w, httpx.BadRequest("account already verified", httpx.CodeAlreadyVerified))
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("verification failed", "error", err)
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteSuccess(w)
}

// HandleResend issues a fresh verification token for a pending account.
//
//	@Summary		Resend the verification email
//	@Description	Replaces the pending account's verification token and sends a new email. The previously emailed link stops working.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		resendRequest	true	"Account email"
//	@Success		200		{object}	httpx.Response
//	@Failure		400		{object}	httpx.Response	"BAD_REQUEST or ALREADY_VERIFIED"
//	@Failure		404		{object}	httpx.Response	"NOT_FOUND"
//	@Router			/v1/auth/resend [post].
func (h *AuthHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, httpx.BadRequest("invalid request body", ""))
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, httpx.BadRequest("email is required", ""))
		return
	}

	err := h.AuthService.ResendVerification(r.Context(), req.Email)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, httpx.NotFound("user not found"))
		return
	case errors.Is(err, service.ErrAlreadyVerified):
		httpx.WriteError(w, httpx.BadRequest("account already verified", httpx.CodeAlreadyVerified))
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("resend verification failed", "error", err)
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteSuccess(w)
}

// HandleRefresh trades a valid refresh token for a new pair.
//
//	@Summary		Refresh a session
//	@Description	Verifies the presented refresh token and mints a new access/refresh pair under a new session id.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Response{data=domain.TokenPair}
//	@Failure		401	{object}	httpx.Response	"UNAUTHORIZED, TOKEN_BLACKLISTED or TOKEN_REVOKED"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, httpx.ErrInvalidToken)
		return
	}

	// Access tokens must not mint new pairs: a leaked short-lived access
	// token would otherwise be renewable forever.
	if claims.Kind != jwtx.TokenKindRefresh {
		httpx.WriteError(w, httpx.ErrInvalidToken)
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), claims)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountNotActive):
			httpx.WriteError(w, httpx.ErrInvalidToken)
		default:
			slogx.FromContext(r.Context()).Error("refresh failed", "error", err)
			httpx.WriteError(w, err)
		}
		return
	}

	httpx.WriteData(w, pair)
}

// HandleLogout blacklists the presented session.
//
//	@Summary		Log out
//	@Description	Blacklists the calling token's session. Both tokens of the pair share the session id, so both die together.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Response
//	@Failure		401	{object}	httpx.Response	"UNAUTHORIZED"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, httpx.ErrInvalidToken)
		return
	}

	if err := h.AuthService.Logout(r.Context(), claims.UserID(), claims.SID); err != nil {
		slogx.FromContext(r.Context()).Error("logout failed", "error", err)
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteSuccess(w)
}

// HandleChangePassword rotates the password and revokes existing sessions.
//
//	@Summary		Change password
//	@Description	Verifies the old password, stores the new one and revokes every token issued up to the calling token. All sessions must log in again.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		changePasswordRequest	true	"Old and new password"
//	@Success		200		{object}	httpx.Response
//	@Failure		400		{object}	httpx.Response	"BAD_REQUEST or PASSWORD_NOT_MATCHED"
//	@Failure		404		{object}	httpx.Response	"NOT_FOUND"
//	@Failure		409		{object}	httpx.Response	"ALREADY_EXISTS (account not active)"
//	@Router			/v1/auth/password [post].
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, httpx.ErrInvalidToken)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, httpx.BadRequest("invalid request body", ""))
		return
	}
	if req.OldPassword == "" {
		httpx.WriteError(w, httpx.BadRequest("old password is required", ""))
		return
	}
	if msg := validatePassword(req.NewPassword); msg != "" {
		httpx.WriteError(w, httpx.BadRequest(msg, ""))
		return
	}

	err := h.AuthService.ChangePassword(
		r.Context(),
		claims.UserID(),
		req.OldPassword,
		req.NewPassword,
		claims.IssuedAtUnix(),
	)
	switch {
	case errors.Is(err, service.ErrPasswordMismatch):
		httpx.WriteError(w, httpx.BadRequest("old password does not match", httpx.CodePasswordNotMatched))
		return
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, httpx.NotFound("user not found"))
		return
	case errors.Is(err, service.ErrAccountNotActive):
		httpx.WriteError(w, httpx.Conflict("account is not active"))
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("password change failed", "error", err)
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteSuccess(w)
}

package http

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/lumehq/accountd/internal/account/domain"
)

type registerRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type userResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
	RoleID    string  `json:"roleId"`
	Status    string  `json:"status"`
	Verified  bool    `json:"verified"`
	CreatedAt string  `json:"createdAt"`
}

type roleResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		RoleID:    u.RoleID,
		Status:    string(u.Status),
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func newRoleResponse(r domain.Role) roleResponse {
	return roleResponse{ID: r.ID, Type: string(r.Type)}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// validatePassword enforces the password policy: at least 8 characters with
// an upper-case letter, a digit and a symbol.
func validatePassword(pw string) string {
	if len(pw) < 8 {
		return "password must be at least 8 characters"
	}

	var upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	switch {
	case !upper:
		return "password must contain an upper-case letter"
	case !digit:
		return "password must contain a digit"
	case !symbol:
		return "password must contain a symbol"
	}
	return ""
}

func (req *registerRequest) validate() string {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	switch {
	case req.Username == "":
		return "username is required"
	case !validEmail(req.Email):
		return "a valid email is required"
	}
	if req.Phone != nil {
		trimmed := strings.TrimSpace(*req.Phone)
		if trimmed == "" {
			req.Phone = nil
		} else {
			req.Phone = &trimmed
		}
	}
	return validatePassword(req.Password)
}

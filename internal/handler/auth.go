package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/repository"
	"github.com/kulisserna/boxoffice/internal/utils"
	"github.com/kulisserna/boxoffice/internal/validate"
)

// AuthHandler manages back-office accounts: sign-in and, for
// administrators, creating new staff accounts.  The public booking
// flow is anonymous; only administrators and door staff authenticate.
type AuthHandler struct {
	UserRepo     UserStore
	JWTSecret    string
	AccessTTLMin int
	BcryptCost   int
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users UserStore, jwtSecret string, accessTTLMin, bcryptCost int) *AuthHandler {
	if users == nil || jwtSecret == "" {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{UserRepo: users, JWTSecret: jwtSecret, AccessTTLMin: accessTTLMin, BcryptCost: bcryptCost}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /v1/auth/login.  Unknown accounts, disabled
// accounts and wrong passwords all answer with the same message so the
// endpoint does not leak which emails have accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	ctx := c.Request().Context()
	user, err := h.UserRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !user.IsActive || !utils.VerifyPassword(user.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := utils.NewAccessToken(h.JWTSecret, user.ID, user.Role, h.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token.Token,
		"expires_at":   token.Exp,
		"role":         user.Role,
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register handles POST /v1/admin/users.  Only administrators reach
// this route; it creates the accounts door staff and other admins sign
// in with.  Role defaults to STAFF when omitted.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !validate.Email(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email address"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleStaff
	}
	if role != model.RoleAdmin && role != model.RoleStaff {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be ADMIN or STAFF"})
	}

	id, err := h.UserRepo.Create(c.Request().Context(), req.Email, req.Password, role, h.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "an account with this email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create account"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "role": role})
}

// Me handles GET /v1/admin/me and echoes the authenticated identity,
// letting the back-office frontend verify a stored token.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}
	role, _ := c.Get("role").(string)
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": role})
}

package server

import (
	"log/slog"
	"time"

	"resort/internal/middleware"
	"resort/internal/models"
	"resort/internal/service"

	"github.com/gofiber/fiber/v2"
)

// sessionResponse is returned by signup, login, refresh and session.
type sessionResponse struct {
	Token     string          `json:"token,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	User      *models.User    `json:"user"`
	Profile   *models.Profile `json:"profile"`
	Role      string          `json:"role"`
}

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account and its guest profile
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string,username=string,full_name=string} true "Signup request"
// @Success 201 {object} sessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
		FullName string `json:"full_name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		return respondError(c, err)
	}

	resp, err := s.newSession(user)
	if err != nil {
		return respondError(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "user signed up", slog.Uint64("user_id", uint64(user.ID)))
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate with email and password and return a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} sessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	resp, err := s.newSession(user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Refresh handles POST /api/auth/refresh
// @Summary Refresh session token
// @Description Revoke the presented token and issue a new one
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} sessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	user, err := s.authService.Session(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	s.revokeCurrentToken(c)
	resp, err := s.newSession(user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the presented token
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.revokeCurrentToken(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// Session handles GET /api/auth/session
// @Summary Current session
// @Description Return the authenticated user, profile and role
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} sessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/session [get]
func (s *Server) Session(c *fiber.Ctx) error {
	user, err := s.authService.Session(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sessionResponse{
		User:    user,
		Profile: user.Profile,
		Role:    string(user.Profile.Role),
	})
}

func (s *Server) newSession(user *models.User) (*sessionResponse, error) {
	role := models.RoleGuest
	if user.Profile != nil {
		role = user.Profile.Role
	}
	now := time.Now()
	token, _, err := middleware.IssueToken(s.config.JWTSecret, user.ID, string(role), now)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	expires := now.Add(middleware.TokenTTL).UTC()
	return &sessionResponse{
		Token:     token,
		ExpiresAt: &expires,
		User:      user,
		Profile:   user.Profile,
		Role:      string(role),
	}, nil
}

func (s *Server) revokeCurrentToken(c *fiber.Ctx) {
	jti, _ := c.Locals(localJTI).(string)
	expiresAt, _ := c.Locals(localExpiry).(time.Time)
	if err := s.revokeToken(c.UserContext(), jti, expiresAt); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token", slog.String("error", err.Error()))
	}
}

package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"resort/internal/middleware"
	"resort/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	wsTicketPrefix  = "ws_ticket:"
	blacklistPrefix = "blacklist:"
	wsTicketTTL     = 60 * time.Second
)

// AuthRequired authenticates the caller with a single-use WebSocket ticket or
// a Bearer token, then loads the profile so role changes and bans apply to
// tokens already issued.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		// 1. WebSocket ticket (short-lived, single-use)
		if ticket := c.Query("ticket"); ticket != "" && s.redis != nil {
			userID, err := s.redeemWSTicket(c.UserContext(), ticket)
			if err == nil {
				return s.authenticate(c, userID, "", time.Time{})
			}
			if isWSPath {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
		}

		// 2. Bearer token. WS routes must use a ticket.
		if isWSPath {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("WebSocket connections require a ticket"))
		}
		claims, err := middleware.ParseToken(s.config.JWTSecret, middleware.BearerToken(c.Get("Authorization")))
		if err != nil {
			if errors.Is(err, middleware.ErrMissingToken) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewAuthRequiredError("Authorization required"))
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		if s.isRevoked(c.UserContext(), claims.JTI) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		return s.authenticate(c, claims.UserID, claims.JTI, claims.ExpiresAt)
	}
}

// OptionalAuth attaches the caller when a valid Bearer token is present and
// lets anonymous requests through otherwise.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.ParseToken(s.config.JWTSecret, middleware.BearerToken(c.Get("Authorization")))
		if err != nil || s.isRevoked(c.UserContext(), claims.JTI) {
			return c.Next()
		}
		profile, err := s.profileRepo.GetByID(c.UserContext(), claims.UserID)
		if err != nil || profile.IsBanned {
			return c.Next()
		}
		s.setIdentity(c, profile, claims.JTI, claims.ExpiresAt)
		return c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !actor(c).IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

func (s *Server) authenticate(c *fiber.Ctx, userID uint, jti string, expiresAt time.Time) error {
	profile, err := s.profileRepo.GetByID(c.UserContext(), userID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Account no longer exists"))
		}
		return respondError(c, err)
	}
	if profile.IsBanned {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("This account has been suspended"))
	}
	s.setIdentity(c, profile, jti, expiresAt)
	return c.Next()
}

func (s *Server) setIdentity(c *fiber.Ctx, profile *models.Profile, jti string, expiresAt time.Time) {
	c.Locals(localUserID, profile.ID)
	c.Locals(localRole, profile.Role)
	if jti != "" {
		c.Locals(localJTI, jti)
		c.Locals(localExpiry, expiresAt)
	}
	// Sync to UserContext for logging and downstream services
	c.SetUserContext(middleware.WithUserID(c.UserContext(), profile.ID))
}

func (s *Server) isRevoked(ctx context.Context, jti string) bool {
	if jti == "" || s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, blacklistPrefix+jti).Result()
	return err == nil && n > 0
}

// revokeToken blacklists jti until the token would have expired anyway.
func (s *Server) revokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" || s.redis == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

func (s *Server) redeemWSTicket(ctx context.Context, ticket string) (uint, error) {
	raw, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, errors.New("ticket not found")
		}
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("malformed ticket")
	}
	return uint(id), nil
}

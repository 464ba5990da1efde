package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"quad/internal/middleware"
	"quad/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "quad-api"
	tokenAudience = "quad-client"
)

// AuthRequired returns the authentication middleware. It accepts either a
// short-lived single-use WebSocket ticket (query param, WS routes) or a JWT
// bearer token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		isWSPath := strings.HasPrefix(path, "/api/ws")

		// 1. Try WebSocket ticket first (short-lived, single-use).
		ticket := c.Query("ticket")
		if ticket != "" {
			if userID, ok := s.redeemWSTicket(c.Context(), ticket); ok {
				setAuthenticatedUser(c, userID)
				c.Locals("wsTicket", ticket)
				return c.Next()
			}
			// A ticket was provided but is invalid or expired. WS routes
			// must use tickets, so fail hard there.
			if isWSPath {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
		}

		// 2. Fall back to JWT.
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Reject tokens in query params on WS routes (must use a ticket).
		if tokenString == "" && !isWSPath {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, err := s.validateToken(c.Context(), tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		setAuthenticatedUser(c, userID)
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		admin, err := s.isAdminByUserID(c.Context(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Admin access required"))
		}

		return c.Next()
	}
}

// setAuthenticatedUser stores the user ID in both Fiber locals and the
// request context used by logging and downstream services.
func setAuthenticatedUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
	c.SetUserContext(ctx)
}

// validateToken parses and validates a JWT, returning the subject user ID.
func (s *Server) validateToken(ctx context.Context, tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, models.NewUnauthorizedError("Invalid token claims")
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
		return 0, models.NewUnauthorizedError("Invalid token issuer")
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != tokenAudience {
		return 0, models.NewUnauthorizedError("Invalid token audience")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid user ID in token")
	}

	// Check JTI for revocation.
	if jti, exists := claims["jti"].(string); exists && jti != "" && s.redis != nil {
		isBlacklisted, err := s.redis.Exists(ctx, blacklistKey(jti)).Result()
		if err == nil && isBlacklisted > 0 {
			return 0, models.NewUnauthorizedError("Token has been revoked")
		}
	}

	return uint(userID), nil
}

// optionalUserID attempts to extract userID from the Authorization header
// but does not enforce it. Public feed routes use it for per-viewer flags.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}

	userID, err := s.validateToken(c.Context(), parts[1])
	if err != nil {
		return 0, false
	}
	return userID, true
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

// tokenRemainingTTL computes how long a parsed token's jti must stay
// blacklisted to outlive the token itself.
func tokenRemainingTTL(claims jwt.MapClaims) time.Duration {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return 24 * time.Hour
	}
	ttl := time.Until(time.Unix(int64(exp), 0))
	if ttl <= 0 {
		return time.Minute
	}
	return ttl
}

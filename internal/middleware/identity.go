package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/dto"
)

const identityKey = "identity"

// Identify turns the verified token into an authz.Identity. It must run after
// JWTProtected; request bodies and query strings are never consulted.
func Identify(resolver *authz.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := claimsFromToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "Unauthorized: " + err.Error(),
			})
		}

		role, err := resolver.Resolve(c.UserContext(), claims.UserID, claims.Email, claims.EmailVerified)
		if err != nil {
			slog.Warn("role resolution degraded to user",
				"request_id", requestID(c), "user_id", claims.UserID.String(), "error", err)
		}

		claims.Role = role
		c.Locals(identityKey, claims)
		return c.Next()
	}
}

// GetIdentity returns the caller stored by Identify.
func GetIdentity(c *fiber.Ctx) (authz.Identity, bool) {
	id, ok := c.Locals(identityKey).(authz.Identity)
	return id, ok
}

// claimsFromToken reads sub, email and email_verified. A missing or
// non-boolean email_verified counts as unverified.
func claimsFromToken(c *fiber.Ctx) (authz.Identity, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return authz.Identity{}, errors.New("missing token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return authz.Identity{}, errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return authz.Identity{}, errors.New("missing sub claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return authz.Identity{}, errors.New("invalid sub claim")
	}
	email, _ := claims["email"].(string)
	verified, _ := claims["email_verified"].(bool)
	return authz.Identity{UserID: userID, Email: email, EmailVerified: verified}, nil
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

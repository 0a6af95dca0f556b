package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/dto"
)

// RequirePermission lets the request through when the caller holds any of
// perms. It must run after Identify.
func RequirePermission(perms ...authz.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := GetIdentity(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "Unauthorized",
			})
		}
		for _, p := range perms {
			if id.Can(p) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: "Insufficient permissions",
		})
	}
}

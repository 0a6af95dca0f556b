package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/middleware"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"github.com/t4zn/medicaps-sub001/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Me returns the caller's profile with the effective role, which differs from
// the stored one for owners.
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	user, err := h.profileService.Get(c.UserContext(), id.UserID)
	if err != nil {
		return respondError(c, err, "Failed to fetch profile")
	}
	return c.JSON(profileResponse(user, id.Role))
}

func (h *ProfileHandler) UpdateMe(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	user, err := h.profileService.UpdateProfile(c.UserContext(), id.UserID, &req)
	if err != nil {
		return respondError(c, err, "Failed to update profile")
	}
	return c.JSON(profileResponse(user, id.Role))
}

func (h *ProfileHandler) Permissions(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(fiber.Map{
		"role":        id.Role,
		"permissions": authz.Permissions(id.Role),
	})
}

func (h *ProfileHandler) ListUsers(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	users, total, err := h.profileService.List(c.UserContext(), c.Query("search"), limit, offset)
	if err != nil {
		return respondError(c, err, "Failed to fetch users")
	}
	return c.JSON(paged(users, total, limit, offset))
}

func (h *ProfileHandler) SetRole(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.profileService.SetRole(c.UserContext(), id, userID, req.Role)
	if err != nil {
		return respondError(c, err, "Failed to update role")
	}
	return c.JSON(user)
}

func profileResponse(u *models.User, role authz.Role) dto.UserResponse {
	return dto.UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		Role:          string(role),
		EmailVerified: u.EmailVerified,
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/middleware"
	"github.com/t4zn/medicaps-sub001/internal/services"
)

// RequestHandler serves role and subject requests.
type RequestHandler struct {
	roleRequests    *services.RoleRequestService
	subjectRequests *services.SubjectRequestService
}

func NewRequestHandler(roleRequests *services.RoleRequestService, subjectRequests *services.SubjectRequestService) *RequestHandler {
	return &RequestHandler{roleRequests: roleRequests, subjectRequests: subjectRequests}
}

func (h *RequestHandler) CreateRoleRequest(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	request, err := h.roleRequests.Create(c.UserContext(), id, &req)
	if err != nil {
		return respondError(c, err, "Failed to create role request")
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *RequestHandler) MyRoleRequests(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	requests, err := h.roleRequests.ListMine(c.UserContext(), id.UserID)
	if err != nil {
		return respondError(c, err, "Failed to fetch role requests")
	}
	return c.JSON(fiber.Map{"data": requests})
}

func (h *RequestHandler) ListRoleRequests(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	requests, total, err := h.roleRequests.List(c.UserContext(), statusQuery(c, "pending"), limit, offset)
	if err != nil {
		return respondError(c, err, "Failed to fetch role requests")
	}
	return c.JSON(paged(requests, total, limit, offset))
}

// ReviewRoleRequest takes {action: approve|reject, rejection_reason?}.
func (h *RequestHandler) ReviewRoleRequest(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid request ID")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	request, err := h.roleRequests.Review(c.UserContext(), id, requestID, &req)
	if err != nil {
		return respondError(c, err, "Failed to review role request")
	}
	return c.JSON(request)
}

func (h *RequestHandler) CreateSubjectRequest(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	request, err := h.subjectRequests.Create(c.UserContext(), id, &req)
	if err != nil {
		return respondError(c, err, "Failed to create subject request")
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *RequestHandler) MySubjectRequests(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	requests, err := h.subjectRequests.ListMine(c.UserContext(), id.UserID)
	if err != nil {
		return respondError(c, err, "Failed to fetch subject requests")
	}
	return c.JSON(fiber.Map{"data": requests})
}

func (h *RequestHandler) ListSubjectRequests(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	requests, total, err := h.subjectRequests.List(c.UserContext(), statusQuery(c, "pending"), limit, offset)
	if err != nil {
		return respondError(c, err, "Failed to fetch subject requests")
	}
	return c.JSON(paged(requests, total, limit, offset))
}

func (h *RequestHandler) ReviewSubjectRequest(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid request ID")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	request, err := h.subjectRequests.Review(c.UserContext(), id, requestID, &req)
	if err != nil {
		return respondError(c, err, "Failed to review subject request")
	}
	return c.JSON(request)
}

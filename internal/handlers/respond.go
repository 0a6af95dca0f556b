package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/middleware"
	"github.com/t4zn/medicaps-sub001/internal/services"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{services.ErrForbidden, fiber.StatusForbidden},

	{services.ErrFileNotFound, fiber.StatusNotFound},
	{services.ErrReportNotFound, fiber.StatusNotFound},
	{services.ErrRequestNotFound, fiber.StatusNotFound},
	{services.ErrUserNotFound, fiber.StatusNotFound},

	{services.ErrDuplicateReport, fiber.StatusConflict},
	{services.ErrDuplicateRoleRequest, fiber.StatusConflict},
	{services.ErrRoleAlreadyHeld, fiber.StatusConflict},
	{services.ErrSubjectExists, fiber.StatusConflict},
	{services.ErrFileAlreadyApproved, fiber.StatusConflict},
	{services.ErrReportNotPending, fiber.StatusConflict},
	{services.ErrRequestNotPending, fiber.StatusConflict},
	{services.ErrConcurrentVote, fiber.StatusConflict},
	{services.ErrAlreadyVerified, fiber.StatusConflict},

	{services.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge},

	{services.ErrInvalidAction, fiber.StatusBadRequest},
	{services.ErrInvalidVoteType, fiber.StatusBadRequest},
	{services.ErrInvalidCategory, fiber.StatusBadRequest},
	{services.ErrUnknownSubject, fiber.StatusBadRequest},
	{services.ErrInvalidTitle, fiber.StatusBadRequest},
	{services.ErrNotPDF, fiber.StatusBadRequest},
	{services.ErrEmptyFile, fiber.StatusBadRequest},
	{services.ErrReasonRequired, fiber.StatusBadRequest},
	{services.ErrInvalidReportStatus, fiber.StatusBadRequest},
	{services.ErrInvalidRequestedRole, fiber.StatusBadRequest},
	{services.ErrInvalidSubjectRequest, fiber.StatusBadRequest},
	{services.ErrInvalidRole, fiber.StatusBadRequest},
	{services.ErrSelfRoleChange, fiber.StatusBadRequest},
	{services.ErrInvalidProfile, fiber.StatusBadRequest},
	{services.ErrInvalidAvatarURL, fiber.StatusBadRequest},
	{services.ErrInvalidVerifyToken, fiber.StatusBadRequest},
}

// respondError maps service errors to a status. Anything unrecognised is
// logged and reported as fallback with a 500.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	var rejected *services.ContentRejectedError
	if errors.As(err, &rejected) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: rejected.Error()})
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return c.Status(e.status).JSON(dto.ErrorResponse{Error: e.err.Error()})
		}
	}

	attrs := []any{"path", c.Path(), "error", err}
	if id, ok := middleware.GetIdentity(c); ok {
		attrs = append(attrs, "user_id", id.UserID.String())
	}
	if rid, ok := c.Locals("requestid").(string); ok {
		attrs = append(attrs, "request_id", rid)
	}
	slog.Error(fallback, attrs...)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: fallback})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

// pagination reads limit/offset with a default page of 20 and a cap of 100.
func pagination(c *fiber.Ctx) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// statusQuery reads ?status=, mapping "all" to no filter.
func statusQuery(c *fiber.Ctx, def string) string {
	status := c.Query("status", def)
	if status == "all" {
		return ""
	}
	return status
}

func paged(items interface{}, total int64, limit, offset int) fiber.Map {
	return fiber.Map{
		"data":   items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}
}

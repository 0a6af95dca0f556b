package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/middleware"
	"github.com/t4zn/medicaps-sub001/internal/services"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.reportService.Create(c.UserContext(), id.UserID, &req)
	if err != nil {
		return respondError(c, err, "Failed to create report")
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	reports, total, err := h.reportService.List(c.UserContext(), statusQuery(c, "pending"), limit, offset)
	if err != nil {
		return respondError(c, err, "Failed to fetch reports")
	}
	return c.JSON(paged(reports, total, limit, offset))
}

func (h *ReportHandler) Resolve(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	reportID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}
	var req dto.ResolveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.reportService.Resolve(c.UserContext(), id, reportID, &req)
	if err != nil {
		return respondError(c, err, "Failed to update report")
	}
	return c.JSON(report)
}

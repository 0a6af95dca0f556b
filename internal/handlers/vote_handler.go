package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/middleware"
	"github.com/t4zn/medicaps-sub001/internal/services"
)

type VoteHandler struct {
	voteService     *services.VoteService
	bookmarkService *services.BookmarkService
}

func NewVoteHandler(voteService *services.VoteService, bookmarkService *services.BookmarkService) *VoteHandler {
	return &VoteHandler{voteService: voteService, bookmarkService: bookmarkService}
}

// Vote toggles the caller's vote. A userId in the body is ignored.
func (h *VoteHandler) Vote(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.FileID == uuid.Nil {
		return badRequest(c, "fileId is required")
	}

	resp, err := h.voteService.Toggle(c.UserContext(), id.UserID, req.FileID, req.VoteType)
	if err != nil {
		return respondError(c, err, "Failed to record vote")
	}
	return c.JSON(resp)
}

func (h *VoteHandler) Counts(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	fileID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid file ID")
	}

	resp, err := h.voteService.Counts(c.UserContext(), fileID, id.UserID)
	if err != nil {
		return respondError(c, err, "Failed to fetch votes")
	}
	return c.JSON(resp)
}

func (h *VoteHandler) ToggleBookmark(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.BookmarkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.FileID == uuid.Nil {
		return badRequest(c, "fileId is required")
	}

	bookmarked, err := h.bookmarkService.Toggle(c.UserContext(), id.UserID, req.FileID)
	if err != nil {
		return respondError(c, err, "Failed to update bookmark")
	}
	return c.JSON(dto.BookmarkResponse{Bookmarked: bookmarked})
}

func (h *VoteHandler) ListBookmarks(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	limit, offset := pagination(c)

	bookmarks, total, err := h.bookmarkService.List(c.UserContext(), id.UserID, limit, offset)
	if err != nil {
		return respondError(c, err, "Failed to fetch bookmarks")
	}
	return c.JSON(paged(bookmarks, total, limit, offset))
}

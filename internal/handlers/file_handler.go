package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/middleware"
	"github.com/t4zn/medicaps-sub001/internal/services"
)

type FileHandler struct {
	fileService *services.FileService
}

func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func (h *FileHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	filter := dto.FileFilter{
		Program:  c.Query("program"),
		Year:     c.Query("year"),
		Branch:   c.Query("branch"),
		Subject:  c.Query("subject"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    limit,
		Offset:   offset,
	}

	files, total, err := h.fileService.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err, "Failed to fetch files")
	}
	return c.JSON(paged(files, total, limit, offset))
}

func (h *FileHandler) Get(c *fiber.Ctx) error {
	fileID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid file ID")
	}
	file, err := h.fileService.Get(c.UserContext(), fileID)
	if err != nil {
		return respondError(c, err, "Failed to fetch file")
	}
	return c.JSON(file)
}

func (h *FileHandler) Download(c *fiber.Ctx) error {
	fileID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid file ID")
	}
	resp, err := h.fileService.RecordDownload(c.UserContext(), fileID)
	if err != nil {
		return respondError(c, err, "Failed to record download")
	}
	return c.JSON(resp)
}

// Upload accepts a multipart form with a "file" part and the classification fields.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.UploadFileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid form data")
	}
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	body, err := header.Open()
	if err != nil {
		return respondError(c, err, "Failed to read upload")
	}
	defer body.Close()

	file, err := h.fileService.Upload(c.UserContext(), id, &req, services.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        body,
	})
	if err != nil {
		return respondError(c, err, "Failed to upload file")
	}

	message := "File submitted for review"
	if file.Approved {
		message = "File published"
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"file":    file,
	})
}

// ListForReview serves the admin queue; status is pending, approved or empty for all.
func (h *FileHandler) ListForReview(c *fiber.Ctx) error {
	status := c.Query("status", "pending")
	if status != "pending" && status != "approved" && status != "all" {
		return badRequest(c, "status must be pending, approved or all")
	}
	if status == "all" {
		status = ""
	}
	limit, offset := pagination(c)

	files, total, err := h.fileService.ListForReview(c.UserContext(), status, limit, offset)
	if err != nil {
		return respondError(c, err, "Failed to fetch files")
	}
	return c.JSON(paged(files, total, limit, offset))
}

func (h *FileHandler) Approve(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	fileID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid file ID")
	}

	file, err := h.fileService.Approve(c.UserContext(), id, fileID)
	if err != nil {
		return respondError(c, err, "Failed to approve file")
	}
	return c.JSON(file)
}

func (h *FileHandler) Reject(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	fileID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid file ID")
	}

	if err := h.fileService.Reject(c.UserContext(), id, fileID); err != nil {
		return respondError(c, err, "Failed to delete file")
	}
	return c.JSON(dto.MessageResponse{Message: "File deleted"})
}

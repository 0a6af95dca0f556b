package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/t4zn/medicaps-sub001/internal/curriculum"
	"github.com/t4zn/medicaps-sub001/internal/dto"
)

type HealthHandler struct {
	ping     func() error
	registry *curriculum.Registry
}

func NewHealthHandler(ping func() error, registry *curriculum.Registry) *HealthHandler {
	return &HealthHandler{ping: ping, registry: registry}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Subjects:  h.registry.Len(),
	})
}

type CurriculumHandler struct {
	registry *curriculum.Registry
}

func NewCurriculumHandler(registry *curriculum.Registry) *CurriculumHandler {
	return &CurriculumHandler{registry: registry}
}

// Tree returns program -> year -> branch -> subjects.
func (h *CurriculumHandler) Tree(c *fiber.Ctx) error {
	return c.JSON(h.registry.Tree())
}

package artifact

import (
	"github.com/gofiber/fiber/v2"
)

// Handler exposes the artifact workflow tasks invoked by the external memo
// production pipeline rather than by extraction itself.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler { return &Handler{service: service} }

type relocateRequest struct {
	EntityName   string `json:"entity_name"`
	TargetFolder string `json:"target_folder"`
}

func (h *Handler) HandleRelocate(c *fiber.Ctx) error {
	var req relocateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request body"})
	}
	if req.EntityName == "" || req.TargetFolder == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "entity_name and target_folder are required"})
	}
	// Relocation failure is a reportable outcome, not an HTTP error.
	return c.JSON(h.service.RelocateLatest(req.EntityName, req.TargetFolder))
}

type patchRequest struct {
	EntityName string `json:"entity_name"`
}

func (h *Handler) HandlePatch(c *fiber.Ctx) error {
	var req patchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request body"})
	}
	if req.EntityName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "entity_name is required"})
	}
	// Partial success across store copies is a valid terminal state.
	return c.JSON(h.service.PatchConfig(req.EntityName))
}

package extract

import (
	"verifront/internal/core/job"
	tasks "verifront/internal/platform/tasks"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
	tasks   *tasks.Client
	jobs    *job.Service
}

func NewHandler(service *Service, t *tasks.Client, jobs *job.Service) *Handler {
	return &Handler{service: service, tasks: t, jobs: jobs}
}

type createRequest struct {
	JobsFile string `json:"jobs_file"`
}

// HandleCreate enqueues a batch extraction run.
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req createRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request body"})
		}
	}

	jobID, err := h.service.Enqueue(c.Context(), h.tasks, req.JobsFile)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "job_id": jobID})
}

// HandleGet reports the status and per-entity summary of a run.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "jobId is required"})
	}
	j, err := h.jobs.GetStatus(c.Context(), jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(j)
}

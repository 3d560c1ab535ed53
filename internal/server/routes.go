package server

import (
	"verifront/internal/core/artifact"
	"verifront/internal/core/extract"
	"verifront/internal/core/job"
	"verifront/internal/health"
	"verifront/internal/platform/redis"
	tasks "verifront/internal/platform/tasks"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Job      *job.Service
	Extract  *extract.Service
	Artifact *artifact.Service
	Tasks    *tasks.Client
	Redis    *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	healthHandler := health.NewHealthHandler(d.Redis)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	extractHandler := extract.NewHandler(d.Extract, d.Tasks, d.Job)
	api.Post("/extractions", extractHandler.HandleCreate)
	api.Get("/extractions/:jobId", extractHandler.HandleGet)

	artifactHandler := artifact.NewHandler(d.Artifact)
	api.Post("/artifacts/relocate", artifactHandler.HandleRelocate)
	api.Post("/artifacts/patch", artifactHandler.HandlePatch)

	return healthHandler
}

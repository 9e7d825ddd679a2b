package http

import (
	"inbox_server/core/service/sync"

	"github.com/gofiber/fiber/v2"
)

// SyncHandler exposes the mailbox sync job lifecycle.
type SyncHandler struct {
	coordinator *sync.Coordinator
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(coordinator *sync.Coordinator) *SyncHandler {
	return &SyncHandler{coordinator: coordinator}
}

// Register registers sync routes.
func (h *SyncHandler) Register(app fiber.Router) {
	grp := app.Group("/sync")
	grp.Post("/", h.StartSync)
	grp.Get("/latest", h.GetLatest)
	grp.Get("/jobs/:id", h.GetJob)
	grp.Post("/jobs/:id/cancel", h.CancelJob)
}

// StartSync creates a new sync job for the caller and enqueues its first
// batch. An owner can only have one active job at a time.
func (h *SyncHandler) StartSync(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	job, err := h.coordinator.StartSync(c.Context(), ownerID)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return CreatedResponse(c, job)
}

// GetLatest returns the caller's most recent sync job.
func (h *SyncHandler) GetLatest(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	job, err := h.coordinator.GetLatestJob(c.Context(), ownerID)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if job == nil {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "no sync jobs yet")
	}

	return SuccessResponse(c, job)
}

// GetJob returns one sync job by id.
func (h *SyncHandler) GetJob(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	job, err := h.coordinator.GetJob(c.Context(), ownerID, c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, job)
}

// CancelJob cancels an active sync job.
func (h *SyncHandler) CancelJob(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	job, err := h.coordinator.CancelSync(c.Context(), ownerID, c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, job)
}

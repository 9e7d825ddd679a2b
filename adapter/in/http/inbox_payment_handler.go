package http

import (
	"inbox_server/core/domain"
	"inbox_server/core/port/out"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler exposes payments queued by rule actions.
type PaymentHandler struct {
	payments out.ScheduledPaymentRepository
	ledger   out.ActionLedgerRepository
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments out.ScheduledPaymentRepository, ledger out.ActionLedgerRepository) *PaymentHandler {
	return &PaymentHandler{payments: payments, ledger: ledger}
}

// Register registers payment and ledger routes.
func (h *PaymentHandler) Register(app fiber.Router) {
	grp := app.Group("/payments")
	grp.Get("/", h.List)
	grp.Get("/:id", h.Get)
	grp.Post("/:id/cancel", h.Cancel)

	app.Get("/actions", h.ListLedger)
}

// List returns the caller's scheduled payments.
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	limit, offset := Pagination(c)
	payments, err := h.payments.ListByOwner(c.Context(), ownerID, limit, offset)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, fiber.Map{"payments": payments})
}

// Get returns one scheduled payment by id.
func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	payment, err := h.payments.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if payment == nil || payment.OwnerID != ownerID {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "payment not found")
	}

	return SuccessResponse(c, payment)
}

// Cancel marks a queued payment as cancelled.
func (h *PaymentHandler) Cancel(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	payment, err := h.payments.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if payment == nil || payment.OwnerID != ownerID {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "payment not found")
	}
	if payment.Status != domain.PaymentScheduleQueued {
		return ErrorResponse(c, fiber.StatusPreconditionFailed, "PRECONDITION_FAILED", "payment is not queued")
	}

	if err := h.payments.UpdateStatus(c.Context(), payment.ID, domain.PaymentScheduleCancelled); err != nil {
		return AppErrorResponse(c, err)
	}
	payment.Status = domain.PaymentScheduleCancelled

	return SuccessResponse(c, payment)
}

// ListLedger returns the caller's recent disposition entries across all
// documents.
func (h *PaymentHandler) ListLedger(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	limit, offset := Pagination(c)
	entries, err := h.ledger.ListByOwner(c.Context(), ownerID, limit, offset)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, fiber.Map{"actions": entries})
}

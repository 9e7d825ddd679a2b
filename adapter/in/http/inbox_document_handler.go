package http

import (
	"inbox_server/core/domain"
	"inbox_server/core/port/out"

	"github.com/gofiber/fiber/v2"
)

// DocumentHandler exposes the extracted inbox cards.
type DocumentHandler struct {
	docs   out.DocumentRepository
	ledger out.ActionLedgerRepository
	blobs  out.BlobStore
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(docs out.DocumentRepository, ledger out.ActionLedgerRepository, blobs out.BlobStore) *DocumentHandler {
	return &DocumentHandler{docs: docs, ledger: ledger, blobs: blobs}
}

// Register registers document routes.
func (h *DocumentHandler) Register(app fiber.Router) {
	grp := app.Group("/documents")
	grp.Get("/", h.List)
	grp.Get("/:id", h.Get)
	grp.Get("/:id/actions", h.ListActions)
	grp.Get("/:id/attachments/:refIndex", h.DownloadAttachment)
}

// List returns the caller's documents, optionally filtered by status.
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	limit, offset := Pagination(c)
	status := domain.DocumentStatus(c.Query("status"))

	docs, total, err := h.docs.List(c.Context(), ownerID, status, limit, offset)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, fiber.Map{
		"documents": docs,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// Get returns one document by id.
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	doc, err := h.docs.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if doc == nil || doc.OwnerID != ownerID {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	}

	return SuccessResponse(c, doc)
}

// ListActions returns the append-only disposition history of a document.
func (h *DocumentHandler) ListActions(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	doc, err := h.docs.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if doc == nil || doc.OwnerID != ownerID {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	}

	entries, err := h.ledger.ListByDocument(c.Context(), doc.ID)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, fiber.Map{"actions": entries})
}

// DownloadAttachment streams a stored attachment blob.
func (h *DocumentHandler) DownloadAttachment(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	doc, err := h.docs.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if doc == nil || doc.OwnerID != ownerID {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	}

	refIndex, err := c.ParamsInt("refIndex")
	if err != nil || refIndex < 0 || refIndex >= len(doc.AttachmentRefs) {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "attachment not found")
	}

	ref := doc.AttachmentRefs[refIndex]
	if ref.URL == "" || h.blobs == nil {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "attachment not stored")
	}

	data, err := h.blobs.Get(c.Context(), ref.URL)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if data == nil {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "attachment blob missing")
	}

	c.Set(fiber.HeaderContentType, ref.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+ref.Filename+`"`)
	return c.Send(data)
}

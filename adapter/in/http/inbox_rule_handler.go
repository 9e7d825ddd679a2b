package http

import (
	"strings"
	"time"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RuleHandler manages the owner's classification rules.
type RuleHandler struct {
	rules out.RuleRepository
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(rules out.RuleRepository) *RuleHandler {
	return &RuleHandler{rules: rules}
}

// Register registers rule routes.
func (h *RuleHandler) Register(app fiber.Router) {
	grp := app.Group("/rules")
	grp.Get("/", h.List)
	grp.Post("/", h.Create)
	grp.Get("/:id", h.Get)
	grp.Put("/:id", h.Update)
	grp.Delete("/:id", h.Delete)
}

type ruleRequest struct {
	Name     string `json:"name"`
	Prompt   string `json:"prompt"`
	Priority int    `json:"priority"`
	Enabled  *bool  `json:"enabled"`
}

func (r *ruleRequest) validate() string {
	if strings.TrimSpace(r.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return "prompt is required"
	}
	return ""
}

// List returns all rules of the caller, enabled or not.
func (h *RuleHandler) List(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	rules, err := h.rules.List(c.Context(), ownerID)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, fiber.Map{"rules": rules})
}

// Create adds a new rule.
func (h *RuleHandler) Create(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	var req ruleRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return ErrorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", msg)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := time.Now()
	rule := &domain.ClassificationRule{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(req.Name),
		Prompt:    strings.TrimSpace(req.Prompt),
		Priority:  req.Priority,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.rules.Create(c.Context(), rule); err != nil {
		return AppErrorResponse(c, err)
	}

	return CreatedResponse(c, rule)
}

// Get returns one rule by id.
func (h *RuleHandler) Get(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	rule, err := h.rules.GetByID(c.Context(), ownerID, c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if rule == nil {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "rule not found")
	}

	return SuccessResponse(c, rule)
}

// Update replaces a rule's fields.
func (h *RuleHandler) Update(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	rule, err := h.rules.GetByID(c.Context(), ownerID, c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if rule == nil {
		return ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "rule not found")
	}

	var req ruleRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return ErrorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", msg)
	}

	rule.Name = strings.TrimSpace(req.Name)
	rule.Prompt = strings.TrimSpace(req.Prompt)
	rule.Priority = req.Priority
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	rule.UpdatedAt = time.Now()

	if err := h.rules.Update(c.Context(), rule); err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, rule)
}

// Delete removes a rule.
func (h *RuleHandler) Delete(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	if err := h.rules.Delete(c.Context(), ownerID, c.Params("id")); err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, fiber.Map{"deleted": true})
}

// Package http contains the Fiber HTTP handlers.
package http

import (
	"errors"
	"time"

	"inbox_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

var ErrUnauthorized = errors.New("unauthorized")

// GetOwnerID safely extracts owner_id from fiber context.
// Returns error if not authenticated.
func GetOwnerID(c *fiber.Ctx) (string, error) {
	ownerID, ok := c.Locals("owner_id").(string)
	if !ok || ownerID == "" {
		return "", ErrUnauthorized
	}
	return ownerID, nil
}

// =============================================================================
// Standardized Response Helpers
// =============================================================================

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// APIError represents a standard API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse sends a standardized JSON success response
func SuccessResponse(c *fiber.Ctx, data interface{}) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.JSON(APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// CreatedResponse sends a 201 success response
func CreatedResponse(c *fiber.Ctx, data interface{}) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorResponse sends a standardized JSON error response
func ErrorResponse(c *fiber.Ctx, status int, code, message string) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.Status(status).JSON(APIResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// AppErrorResponse handles apperr.AppError and returns the mapped response.
// Unknown errors become a generic 500 without leaking internals.
func AppErrorResponse(c *fiber.Ctx, err error) error {
	if ae, ok := apperr.AsAppError(err); ok {
		return ErrorResponse(c, ae.Status, string(ae.Code), ae.Message)
	}
	return ErrorResponse(c, fiber.StatusInternalServerError, string(apperr.CodeInternal), "An unexpected error occurred")
}

// Pagination extracts limit/offset query params with sane bounds.
func Pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

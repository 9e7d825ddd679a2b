package http

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"inbox_server/adapter/out/persistence"
	"inbox_server/adapter/out/provider/gmail"
	"inbox_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
)

// OAuthStateStore stores and validates one-time OAuth states (CSRF
// protection).
type OAuthStateStore interface {
	StoreState(ctx context.Context, state, ownerID string, ttl time.Duration) error
	ValidateState(ctx context.Context, state string) (string, error)
}

// OAuthStateTTL is how long a connect state stays valid.
const OAuthStateTTL = 10 * time.Minute

// OAuthHandler connects and disconnects the caller's Gmail account.
type OAuthHandler struct {
	config     *oauth2.Config
	tokens     *persistence.OAuthAdapter
	stateStore OAuthStateStore
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(config *oauth2.Config, tokens *persistence.OAuthAdapter, stateStore OAuthStateStore) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		tokens:     tokens,
		stateStore: stateStore,
	}
}

// Register registers authenticated OAuth routes.
func (h *OAuthHandler) Register(app fiber.Router) {
	grp := app.Group("/oauth")
	grp.Get("/connect", h.Connect)
	grp.Post("/disconnect", h.Disconnect)
}

// RegisterCallback registers the unauthenticated callback route (Google
// redirects here without our bearer token).
func (h *OAuthHandler) RegisterCallback(app fiber.Router) {
	app.Get("/oauth/callback", h.Callback)
}

func generateSecureState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secure state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Connect returns the Google consent URL for the caller.
func (h *OAuthHandler) Connect(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	state, err := generateSecureState()
	if err != nil {
		logger.WithError(err).Error("[OAuthHandler.Connect] Failed to generate state")
		return ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL", "failed to generate state")
	}

	if err := h.stateStore.StoreState(c.Context(), state, ownerID, OAuthStateTTL); err != nil {
		logger.WithError(err).Error("[OAuthHandler.Connect] Failed to store state")
		return ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL", "failed to store state")
	}

	authURL := h.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	return SuccessResponse(c, fiber.Map{
		"auth_url": authURL,
		"state":    state,
	})
}

// Callback exchanges the authorization code and stores the token.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	state := c.Query("state")
	code := c.Query("code")

	if state == "" || code == "" {
		return ErrorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "missing state or code")
	}

	ownerID, err := h.stateStore.ValidateState(c.Context(), state)
	if err != nil {
		logger.WithError(err).Warn("[OAuthHandler.Callback] State validation failed")
		return ErrorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid or expired state")
	}

	token, err := h.config.Exchange(c.Context(), code)
	if err != nil {
		logger.WithError(err).Error("[OAuthHandler.Callback] Code exchange failed")
		return ErrorResponse(c, fiber.StatusBadGateway, "EXTERNAL_ERROR", "failed to exchange authorization code")
	}

	email, err := gmail.FetchProfileEmail(c.Context(), h.config, token)
	if err != nil {
		logger.WithError(err).Error("[OAuthHandler.Callback] Profile fetch failed")
		return ErrorResponse(c, fiber.StatusBadGateway, "EXTERNAL_ERROR", "failed to fetch mailbox profile")
	}

	if err := h.tokens.Upsert(c.Context(), ownerID, email, token); err != nil {
		logger.WithError(err).Error("[OAuthHandler.Callback] Token store failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "DATABASE_ERROR", "failed to store connection")
	}

	logger.Info("[OAuthHandler.Callback] Mailbox connected: owner=%s email=%s", ownerID, email)
	return SuccessResponse(c, fiber.Map{
		"connected": true,
		"email":     email,
	})
}

// Disconnect marks the caller's connection as disconnected.
func (h *OAuthHandler) Disconnect(c *fiber.Ctx) error {
	ownerID, err := GetOwnerID(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}

	if err := h.tokens.Disconnect(c.Context(), ownerID); err != nil {
		return AppErrorResponse(c, err)
	}

	return SuccessResponse(c, fiber.Map{"disconnected": true})
}

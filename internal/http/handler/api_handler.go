package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkRewards/internal/app/model"
	"github.com/sifan077/LinkRewards/internal/app/service"
	"github.com/sifan077/LinkRewards/internal/http/middleware"
	"github.com/sifan077/LinkRewards/internal/http/response"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	EarnService service.EarnService
}

// APIHandler implements the user facing JSON endpoints.
type APIHandler struct {
	logger *zap.Logger
	earn   service.EarnService
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger: logger,
		earn:   deps.EarnService,
	}
}

// Register wires API routes onto the user router.
func (h *APIHandler) Register(router fiber.Router) {
	router.Get("/providers", middleware.RequireAuth(), h.Providers)
	router.Get("/history", middleware.RequireAuth(), h.History)
}

// ProvidersResponse is the payload of GET /providers.
type ProvidersResponse struct {
	Providers  []service.ProviderSummary `json:"providers"`
	L4REnabled bool                      `json:"l4r_enabled"`
}

// HistoryResponse is the payload of GET /history.
type HistoryResponse struct {
	Links []model.Link `json:"links"`
	Total int          `json:"total"`
}

// Providers handles GET /api/user/billinglinks/providers
func (h *APIHandler) Providers(c *fiber.Ctx) error {
	providers, err := h.earn.Providers(c.UserContext())
	if err != nil {
		return h.fail(c, err, "failed to list providers")
	}
	return response.OK(c, ProvidersResponse{Providers: providers, L4REnabled: true}, "")
}

// History handles GET /api/user/billinglinks/history
func (h *APIHandler) History(c *fiber.Ctx) error {
	links, err := h.earn.History(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return h.fail(c, err, "failed to list links")
	}
	if links == nil {
		links = []model.Link{}
	}
	return response.OK(c, HistoryResponse{Links: links, Total: len(links)}, "")
}

func (h *APIHandler) fail(c *fiber.Ctx, err error, logMsg string) error {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		return response.Fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
	case errors.Is(err, service.ErrFeatureDisabled):
		return response.Fail(c, fiber.StatusForbidden, "L4R_DISABLED", "Links4Rewards is currently disabled")
	}
	h.logger.Error(logMsg, zap.Error(err))
	return response.Fail(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

// Health handles GET /health
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "linkrewards",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

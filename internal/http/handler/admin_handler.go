package handler

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkRewards/internal/app/service"
	"github.com/sifan077/LinkRewards/internal/app/settings"
	"github.com/sifan077/LinkRewards/internal/http/middleware"
	"github.com/sifan077/LinkRewards/internal/http/response"
	"go.uber.org/zap"
)

// AdminDeps groups dependencies required by admin handlers.
type AdminDeps struct {
	Logger       *zap.Logger
	AdminService service.AdminService
}

// AdminHandler implements the admin settings and link listing endpoints.
type AdminHandler struct {
	logger *zap.Logger
	admin  service.AdminService
}

// NewAdminHandler creates an admin handler with the provided dependencies.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		logger: logger,
		admin:  deps.AdminService,
	}
}

// Register wires admin routes onto the admin router. The router must already
// require the admin role.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/settings", h.GetSettings)
	router.Patch("/settings", h.UpdateSettings)
	router.Put("/settings", h.UpdateSettings)
	router.Get("/links", h.ListLinks)
}

// GetSettings handles GET /api/admin/billinglinks/settings
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	values, err := h.admin.Settings(c.UserContext())
	if err != nil {
		h.logger.Error("failed to load settings", zap.Error(err))
		return response.Fail(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load settings")
	}
	return response.OK(c, fiber.Map{"settings": values}, "")
}

// UpdateSettings handles PATCH|PUT /api/admin/billinglinks/settings
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var values map[string]any
	if err := json.Unmarshal(c.Body(), &values); err != nil || values == nil {
		return response.Fail(c, fiber.StatusBadRequest, "INVALID_JSON", "Invalid JSON in request body")
	}

	keys, err := h.admin.UpdateSettings(c.UserContext(), middleware.CurrentIdentity(c), values)
	if err != nil {
		var invalid *settings.InvalidSettingError
		switch {
		case errors.Is(err, settings.ErrNoSettings):
			return response.Fail(c, fiber.StatusBadRequest, "NO_SETTINGS", "No valid settings provided")
		case errors.As(err, &invalid):
			return response.Fail(c, fiber.StatusBadRequest, "INVALID_SETTING", invalid.Error())
		}
		h.logger.Error("failed to update settings", zap.Error(err))
		return response.Fail(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update settings")
	}

	h.logger.Info("settings updated",
		zap.Int64("admin_id", middleware.CurrentIdentity(c).UserID),
		zap.Strings("keys", keys))
	return response.OK(c, fiber.Map{"updated": keys}, "Settings updated successfully")
}

// ListLinks handles GET /api/admin/billinglinks/links
func (h *AdminHandler) ListLinks(c *fiber.Ctx) error {
	page, err := h.admin.ListLinks(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("limit", service.DefaultPageSize))
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return response.Fail(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list links")
	}

	return response.OKWithMeta(c, page.Links, map[string]any{
		"pagination": response.Pagination{
			CurrentPage: page.CurrentPage,
			PerPage:     page.PerPage,
			Total:       page.Total,
			TotalPages:  page.TotalPages,
		},
	}, "")
}

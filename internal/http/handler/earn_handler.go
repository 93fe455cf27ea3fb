package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sifan077/LinkRewards/internal/app/service"
	"github.com/sifan077/LinkRewards/internal/http/middleware"
	"github.com/sifan077/LinkRewards/internal/http/view"
	"github.com/sifan077/LinkRewards/internal/i18n"
	"go.uber.org/zap"
)

const defaultReturnURL = "/dashboard"

// EarnDeps groups dependencies required by the browser facing earn handlers.
type EarnDeps struct {
	Logger      *zap.Logger
	EarnService service.EarnService
	// ReturnURL is the panel page the "go back" buttons point at.
	ReturnURL string
}

// EarnHandler serves the start redirect and the earn callback pages.
type EarnHandler struct {
	logger    *zap.Logger
	earn      service.EarnService
	returnURL string
}

// NewEarnHandler creates an earn handler with the provided dependencies.
func NewEarnHandler(deps EarnDeps) *EarnHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	returnURL := deps.ReturnURL
	if returnURL == "" {
		returnURL = defaultReturnURL
	}
	return &EarnHandler{
		logger:    logger,
		earn:      deps.EarnService,
		returnURL: returnURL,
	}
}

// Register wires the earn routes onto the user router.
func (h *EarnHandler) Register(router fiber.Router) {
	router.Get("/start/:provider", h.Start)
	router.Get("/earn/:code", h.Earn)
}

// Start handles GET /start/:provider
func (h *EarnHandler) Start(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	providerName := c.Params("provider")

	result, err := h.earn.Start(c.UserContext(), identity, providerName)
	if err != nil {
		return h.renderError(c, err, providerName)
	}

	if result.Interstitial == nil {
		return c.Redirect(result.RedirectURL, fiber.StatusFound)
	}

	localizer := middleware.Localizer(c)
	html, err := view.RenderLinkvertisePage(view.LinkvertisePageData{
		Lang:          language(c),
		Title:         i18n.T(localizer, "linkvertise_title", nil),
		Message:       i18n.T(localizer, "linkvertise_body", nil),
		ContinueLabel: i18n.T(localizer, "linkvertise_continue", nil),
		ContinueURL:   result.Interstitial.CallbackURL,
		BackLabel:     i18n.T(localizer, "go_back", nil),
		BackURL:       h.returnURL,
		PublisherID:   result.Interstitial.PublisherID,
	})
	if err != nil {
		h.logger.Error("failed to render linkvertise page", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("failed to render page")
	}

	c.Set(fiber.HeaderContentSecurityPolicy, view.LinkvertiseCSP)
	return c.Type("html", "utf-8").SendString(html)
}

// Earn handles GET /earn/:code
func (h *EarnHandler) Earn(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	result, err := h.earn.Earn(c.UserContext(), identity, c.Params("code"))
	if err != nil {
		return h.renderError(c, err, "")
	}

	localizer := middleware.Localizer(c)
	data := view.OutcomePageData{
		Title:   i18n.T(localizer, "success_title", nil),
		Message: i18n.T(localizer, "success_body", map[string]any{"Coins": result.Coins}),
		Variant: view.VariantSuccess,
	}
	if result.CreditFailed {
		data.Detail = i18n.T(localizer, "success_credit_pending", nil)
	}
	return h.render(c, fiber.StatusOK, data)
}

func (h *EarnHandler) renderError(c *fiber.Ctx, err error, providerName string) error {
	localizer := middleware.Localizer(c)
	data, status := outcomeFor(localizer, err, providerName)

	if status >= fiber.StatusInternalServerError {
		h.logger.Error("earn flow failed",
			zap.String("path", c.Path()),
			zap.Int64("user_id", middleware.CurrentIdentity(c).UserID),
			zap.Error(err))
	}
	return h.render(c, status, data)
}

func (h *EarnHandler) render(c *fiber.Ctx, status int, data view.OutcomePageData) error {
	data.Lang = language(c)
	data.BackURL = h.returnURL
	data.BackLabel = i18n.T(middleware.Localizer(c), "go_back", nil)

	html, err := view.RenderOutcomePage(data)
	if err != nil {
		h.logger.Error("failed to render outcome page", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("failed to render page")
	}
	return c.Status(status).Type("html", "utf-8").SendString(html)
}

// outcomeFor maps a service error onto page content and a status code.
func outcomeFor(localizer *goi18n.Localizer, err error, providerName string) (view.OutcomePageData, int) {
	var (
		cooldown   *service.CooldownError
		dailyLimit *service.DailyLimitError
		tooFast    *service.TooFastError
		shortening *service.ShorteningError
	)

	switch {
	case errors.As(err, &cooldown):
		minutes := cooldown.MinutesRemaining()
		return view.OutcomePageData{
			Title:   i18n.T(localizer, "cooldown_title", nil),
			Message: i18n.TN(localizer, "cooldown_body", minutes, map[string]any{"Minutes": minutes}),
			Variant: view.VariantWarning,
		}, fiber.StatusTooManyRequests
	case errors.As(err, &dailyLimit):
		return view.OutcomePageData{
			Title:   i18n.T(localizer, "daily_limit_title", nil),
			Message: i18n.T(localizer, "daily_limit_body", map[string]any{"Limit": dailyLimit.Limit}),
			Variant: view.VariantWarning,
		}, fiber.StatusTooManyRequests
	case errors.As(err, &tooFast):
		return view.OutcomePageData{
			Title:   i18n.T(localizer, "too_fast_title", nil),
			Message: i18n.T(localizer, "too_fast_body", map[string]any{"Seconds": tooFast.MinSeconds}),
			Variant: view.VariantWarning,
		}, fiber.StatusBadRequest
	}

	if errors.As(err, &shortening) {
		providerName = shortening.Provider.String()
	}

	data := view.OutcomePageData{
		Title:   i18n.T(localizer, "error_title", nil),
		Message: i18n.T(localizer, service.Reason(err), map[string]any{"Provider": providerName}),
		Variant: view.VariantError,
	}

	switch service.KindOf(err) {
	case service.KindAuthorization:
		if errors.Is(err, service.ErrNotOwner) {
			return data, fiber.StatusForbidden
		}
		return data, fiber.StatusUnauthorized
	case service.KindValidation:
		return data, fiber.StatusBadRequest
	case service.KindPolicy:
		if errors.Is(err, service.ErrFeatureDisabled) || errors.Is(err, service.ErrProviderDisabled) {
			return data, fiber.StatusForbidden
		}
		return data, fiber.StatusTooManyRequests
	case service.KindUpstream:
		return data, fiber.StatusBadGateway
	default:
		return data, fiber.StatusInternalServerError
	}
}

func language(c *fiber.Ctx) string {
	if lang := string(c.Response().Header.Peek(fiber.HeaderContentLanguage)); lang != "" {
		return lang
	}
	return "en"
}

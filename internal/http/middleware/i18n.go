package middleware

import (
	"github.com/gofiber/fiber/v2"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sifan077/LinkRewards/internal/i18n"
)

const localizerKey = "i18n.localizer"

// I18n stores a localizer matching the Accept-Language header.
func I18n(translator *i18n.Translator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lang := translator.Match(c.Get(fiber.HeaderAcceptLanguage))
		c.Locals(localizerKey, translator.Localizer(lang))
		c.Set(fiber.HeaderContentLanguage, lang)
		return c.Next()
	}
}

// Localizer returns the request localizer, nil when the middleware did not run.
func Localizer(c *fiber.Ctx) *goi18n.Localizer {
	localizer, _ := c.Locals(localizerKey).(*goi18n.Localizer)
	return localizer
}

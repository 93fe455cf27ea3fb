package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkRewards/internal/app/service"
	"github.com/sifan077/LinkRewards/internal/http/response"
	"github.com/sifan077/LinkRewards/internal/http/util"
	"go.uber.org/zap"
)

const (
	UserIDHeader        = "X-User-ID"
	UserUUIDHeader      = "X-User-UUID"
	UserRoleHeader      = "X-User-Role"
	IdentityTokenHeader = "X-Identity-Token"

	identityKey = "identity"
)

// Identity resolves the acting user from the headers set by the host panel.
// Requests without a valid token continue anonymously. A nil signer trusts
// the headers as-is and must only be used in development.
func Identity(signer *util.TokenSigner, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := service.Identity{IP: c.IP()}

		rawID := strings.TrimSpace(c.Get(UserIDHeader))
		if rawID == "" {
			c.Locals(identityKey, identity)
			return c.Next()
		}

		userID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || userID <= 0 {
			logger.Warn("malformed user id header", zap.String("value", rawID))
			c.Locals(identityKey, identity)
			return c.Next()
		}

		claimed := service.Identity{
			UserID:   userID,
			UserUUID: strings.TrimSpace(c.Get(UserUUIDHeader)),
			Role:     strings.ToLower(strings.TrimSpace(c.Get(UserRoleHeader))),
			IP:       identity.IP,
		}

		if signer != nil {
			if err := signer.Validate(claimed.Subject(), c.Get(IdentityTokenHeader)); err != nil {
				logger.Warn("rejected identity token",
					zap.Int64("user_id", userID),
					zap.String("ip", identity.IP),
					zap.Error(err))
				c.Locals(identityKey, identity)
				return c.Next()
			}
		}

		c.Locals(identityKey, claimed)
		return c.Next()
	}
}

// CurrentIdentity returns the identity resolved for the request.
func CurrentIdentity(c *fiber.Ctx) service.Identity {
	if identity, ok := c.Locals(identityKey).(service.Identity); ok {
		return identity
	}
	return service.Identity{IP: c.IP()}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentIdentity(c).Authenticated() {
			return response.Fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		}
		return c.Next()
	}
}

// RequireAdmin rejects requests that do not carry the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := CurrentIdentity(c)
		if !identity.Authenticated() {
			return response.Fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		}
		if !identity.IsAdmin() {
			return response.Fail(c, fiber.StatusForbidden, "FORBIDDEN", "Admin access required")
		}
		return c.Next()
	}
}

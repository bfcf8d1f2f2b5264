package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/model"
	"github.com/sifan077/SnipURL/internal/app/service"
	httpUtil "github.com/sifan077/SnipURL/internal/http/util"
	"go.uber.org/zap"
)

const (
	localUserID = "user_id"
	localRole   = "role"
)

// RequireAuth rejects requests without a valid bearer token and stores the
// verified identity in request locals.
func RequireAuth(auth service.AuthService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return httpUtil.WriteError(c, logger, apperr.Authentication("authentication required"))
		}

		claims, err := auth.Verify(token)
		if err != nil {
			return httpUtil.WriteError(c, logger, err)
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// OptionalAuth resolves the identity when a token is supplied but lets
// anonymous requests through. A token that is present and invalid is still
// rejected.
func OptionalAuth(auth service.AuthService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}

		claims, err := auth.Verify(token)
		if err != nil {
			return httpUtil.WriteError(c, logger, err)
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// RequireAdmin runs after RequireAuth and enforces the admin role.
func RequireAdmin(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(localRole).(string); role != model.RoleAdmin {
			return httpUtil.WriteError(c, logger, apperr.Authorization("admin role required"))
		}
		return c.Next()
	}
}

// ActorFromCtx extracts the authenticated actor, if any.
func ActorFromCtx(c *fiber.Ctx) (service.Actor, bool) {
	userID, ok := c.Locals(localUserID).(string)
	if !ok || userID == "" {
		return service.Actor{}, false
	}
	role, _ := c.Locals(localRole).(string)
	return service.Actor{ID: userID, Admin: role == model.RoleAdmin}, true
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

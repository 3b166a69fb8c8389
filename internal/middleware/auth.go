// Package middleware provides authentication, logging, metrics and tracing
// middleware for the HTTP server.
package middleware

import (
	"context"
	"errors"
	"strings"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier resolves a session token to a user ID.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (uint, error)
}

// TokenFromRequest returns the session token from the named cookie, falling
// back to an "Authorization: Bearer" header.
func TokenFromRequest(c *fiber.Ctx, cookieName string) string {
	if cookieName != "" {
		if v := c.Cookies(cookieName); v != "" {
			return v
		}
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SetUserID stores the authenticated user in locals and in the user context
// picked up by the context-aware logger.
func SetUserID(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// UserID returns the authenticated user, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	uid, ok := c.Locals("userID").(uint)
	return uid, ok && uid != 0
}

// SessionRequired rejects requests without a valid session with 401.
func SessionRequired(v TokenVerifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		userID, err := v.Verify(c.UserContext(), token)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeInternal {
				return models.RespondWithError(c, fiber.StatusInternalServerError, appErr)
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}
		SetUserID(c, userID)
		return c.Next()
	}
}

// SessionOptional attaches the user when a valid session is present and
// otherwise lets the request through anonymously.
func SessionOptional(v TokenVerifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := TokenFromRequest(c, cookieName); token != "" {
			if userID, err := v.Verify(c.UserContext(), token); err == nil {
				SetUserID(c, userID)
			}
		}
		return c.Next()
	}
}

// Package auth guards protected routes. RequireAuth authenticates the
// caller and stores the resolved user in the echo context; RequireRole
// authorizes against that resolved identity instead of decoding the token a
// second time.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bianchibruno/comp0034-fyp/internal/logging"
	"github.com/bianchibruno/comp0034-fyp/internal/models"
	"github.com/bianchibruno/comp0034-fyp/internal/token"
)

const userContextKey = "user"

type Guard struct {
	DB     *gorm.DB
	Tokens *token.Service
}

func NewGuard(db *gorm.DB, tokens *token.Service) *Guard {
	return &Guard{DB: db, Tokens: tokens}
}

// CurrentUser returns the user resolved by RequireAuth, or nil outside a
// guarded route.
func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "require_auth")

		raw := c.Request().Header.Get(echo.HeaderAuthorization)
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Authentication Token missing"})
		}
		raw = strings.TrimPrefix(raw, "Bearer ")

		userID, err := g.Tokens.Validate(raw)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Token has expired"})
			}
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid token"})
		}

		var user models.User
		if err := g.DB.First(&user, userID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				l.Error("user lookup failed", "user_id", userID, "error", err)
			}
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid or missing token."})
		}

		c.Set(userContextKey, &user)
		return next(c)
	}
}

// RequireRole must be composed after RequireAuth.
func (g *Guard) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid or missing token."})
			}
			if user.Role != role {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "Unauthorized. Insufficient permissions"})
			}
			return next(c)
		}
	}
}

// Package middleware holds the fiber middleware shared by the HTTP
// surfaces. Tokens are issued by the main site; this subsystem only
// verifies them.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"miru/internal/config"
)

// userClaimsKey is the fiber locals key the verified claims live under.
const userClaimsKey = "userClaims"

// UserClaims is the subset of the site's JWT payload this subsystem
// reads.
type UserClaims struct {
	UserID uint `json:"uid"`
	Role   int  `json:"role"`
	jwt.RegisteredClaims
}

var errNoToken = errors.New("no bearer token")

// parseToken verifies the Authorization header and returns its claims.
func parseToken(c *fiber.Ctx, secret string) (*UserClaims, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errNoToken
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireAdmin gates a route group on a valid token whose role meets the
// configured admin threshold.
func RequireAdmin(cfg *config.Config, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := parseToken(c, cfg.JWTSecret)
		if err != nil {
			logger.Debug("admin auth rejected", slog.Any("error", err))
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}
		if claims.Role < cfg.AdminMinRole {
			logger.Debug("admin auth rejected",
				slog.Uint64("user_id", uint64(claims.UserID)),
				slog.Int("role", claims.Role))
			return c.Status(http.StatusForbidden).JSON(fiber.Map{
				"error": "insufficient role",
			})
		}

		c.Locals(userClaimsKey, claims)
		return c.Next()
	}
}

// OptionalUserID extracts the authenticated user id from a request when
// a valid token is present. Ingestion is public, so an absent or invalid
// token simply yields nil.
func OptionalUserID(c *fiber.Ctx, cfg *config.Config) *uint {
	claims, err := parseToken(c, cfg.JWTSecret)
	if err != nil || claims.UserID == 0 {
		return nil
	}
	id := claims.UserID
	return &id
}

// ClaimsFromContext returns the claims stored by RequireAdmin.
func ClaimsFromContext(c *fiber.Ctx) *UserClaims {
	claims, _ := c.Locals(userClaimsKey).(*UserClaims)
	return claims
}

package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
	"github.com/jhoicas/firmador-dte/pkg/jwt"
)

// Locals keys para el cliente autenticado en Fiber.
const (
	LocalClientID = "client_id"
	LocalScopes   = "scopes"
)

// AuthMiddleware valida el Bearer Token del cliente y carga client_id y scopes en c.Locals.
// issuer vacío no valida el emisor.
func AuthMiddleware(jwtSecret, issuer string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Unauthorized(dto.ReasonMissingToken, "Authorization header requerido"))
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Unauthorized(dto.ReasonInvalidToken, "formato: Bearer <token>"))
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Unauthorized(dto.ReasonMissingToken, "token vacío"))
		}
		claims, err := jwt.Parse(jwtSecret, issuer, tokenString)
		if err != nil {
			msg := "token inválido"
			if errors.Is(err, jwt.ErrExpired) {
				msg = "token expirado"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Unauthorized(dto.ReasonInvalidToken, msg))
		}
		c.Locals(LocalClientID, claims.ClientID)
		c.Locals(LocalScopes, claims.Scopes)
		return c.Next()
	}
}

// RequireScope exige que el token conceda scope. Debe usarse DESPUÉS de AuthMiddleware.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetClientID(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Unauthorized(dto.ReasonUnauthorized,
				"client_id no encontrado en el token"))
		}
		for _, s := range GetScopes(c) {
			if s == scope {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.Forbidden("el token no concede el scope '" + scope + "'"))
	}
}

// GetClientID devuelve el client_id del contexto (después del middleware de auth).
func GetClientID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalClientID).(string)
	return s
}

// GetScopes devuelve los scopes del token.
func GetScopes(c *fiber.Ctx) []string {
	s, _ := c.Locals(LocalScopes).([]string)
	return s
}

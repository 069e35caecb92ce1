package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/firmador-dte/internal/application/signing"
	"github.com/jhoicas/firmador-dte/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	SignUC   *signing.SignUseCase
	VerifyUC *signing.VerifyUseCase
	AuditUC  *signing.AuditUseCase // nil = auditoría deshabilitada
	Metrics  *Metrics              // nil = sin /metrics

	// JWTSecret vacío deshabilita la autenticación de clientes.
	JWTSecret string
	JWTIssuer string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
		app.Get("/metrics", deps.Metrics.Handler())
	}

	api := app.Group("/api")
	dte := api.Group("/dte")
	if deps.JWTSecret != "" {
		dte.Use(AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	}

	dteHandler := NewDteHandler(deps.SignUC, deps.VerifyUC, deps.Metrics)
	dte.Post("/sign", scoped(deps, jwt.ScopeSign), dteHandler.Sign)
	dte.Post("/verify", scoped(deps, jwt.ScopeVerify), dteHandler.Verify)
	dte.Post("/extract", scoped(deps, jwt.ScopeVerify), dteHandler.Extract)

	if deps.AuditUC != nil {
		auditHandler := NewAuditHandler(deps.AuditUC)
		dte.Get("/signatures/:nit", scoped(deps, jwt.ScopeVerify), auditHandler.List)
		dte.Get("/signatures/:nit/:codigo", scoped(deps, jwt.ScopeVerify), auditHandler.GetByCodigoGeneracion)
	}
}

func scoped(deps RouterDeps, scope string) fiber.Handler {
	if deps.JWTSecret == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return RequireScope(scope)
}

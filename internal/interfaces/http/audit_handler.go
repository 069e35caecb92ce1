package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
	"github.com/jhoicas/firmador-dte/internal/application/signing"
)

// AuditHandler expone el historial de firmas (solo con AUDIT_ENABLED).
type AuditHandler struct {
	uc *signing.AuditUseCase
}

// NewAuditHandler construye el handler.
func NewAuditHandler(uc *signing.AuditUseCase) *AuditHandler {
	return &AuditHandler{uc: uc}
}

// List GET /api/dte/signatures/:nit?limit=20&offset=0
func (h *AuditHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	res := h.uc.List(c.UserContext(), c.Params("nit"), dto.PageRequest{Limit: limit, Offset: offset})
	return c.Status(StatusFor(res)).JSON(res)
}

// GetByCodigoGeneracion GET /api/dte/signatures/:nit/:codigo
func (h *AuditHandler) GetByCodigoGeneracion(c *fiber.Ctx) error {
	res := h.uc.FindByCodigoGeneracion(c.UserContext(), c.Params("nit"), c.Params("codigo"))
	return c.Status(StatusFor(res)).JSON(res)
}

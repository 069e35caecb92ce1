package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
	"github.com/jhoicas/firmador-dte/internal/application/signing"
	"github.com/jhoicas/firmador-dte/internal/domain"
)

// DteHandler maneja firma, verificación y extracción de DTE.
type DteHandler struct {
	sign    *signing.SignUseCase
	verify  *signing.VerifyUseCase
	metrics *Metrics
}

// NewDteHandler construye el handler. metrics puede ser nil.
func NewDteHandler(sign *signing.SignUseCase, verify *signing.VerifyUseCase, metrics *Metrics) *DteHandler {
	return &DteHandler{sign: sign, verify: verify, metrics: metrics}
}

// Sign POST /api/dte/sign
// @Summary Firma un DTE con el certificado del NIT
// @Tags dte
// @Accept json
// @Produce json
// @Param body body dto.SignRequest true "NIT, contraseña de la llave y DTE"
// @Success 200 {object} dto.Result
// @Failure 400 {object} dto.Result
// @Failure 401 {object} dto.Result
// @Failure 404 {object} dto.Result
// @Failure 422 {object} dto.Result
// @Router /api/dte/sign [post]
func (h *DteHandler) Sign(c *fiber.Ctx) error {
	var in dto.SignRequest
	if err := c.BodyParser(&in); err != nil {
		return h.respond(c, OperationSign, invalidBody(err))
	}
	return h.respond(c, OperationSign, h.sign.Sign(c.UserContext(), in))
}

// Verify POST /api/dte/verify
// @Summary Verifica la firma de un DTE contra el certificado del NIT
// @Tags dte
// @Accept json
// @Produce json
// @Param body body dto.VerifyRequest true "token y NIT"
// @Success 200 {object} dto.Result
// @Failure 400 {object} dto.Result
// @Failure 422 {object} dto.Result
// @Router /api/dte/verify [post]
func (h *DteHandler) Verify(c *fiber.Ctx) error {
	var in dto.VerifyRequest
	if err := c.BodyParser(&in); err != nil {
		return h.respond(c, OperationVerify, invalidBody(err))
	}
	return h.respond(c, OperationVerify, h.verify.Verify(c.UserContext(), in))
}

// Extract POST /api/dte/extract
// @Summary Decodifica el payload sin verificar la firma
// @Tags dte
// @Accept json
// @Produce json
// @Param body body dto.ExtractRequest true "token"
// @Success 200 {object} dto.Result
// @Failure 400 {object} dto.Result
// @Router /api/dte/extract [post]
func (h *DteHandler) Extract(c *fiber.Ctx) error {
	var in dto.ExtractRequest
	if err := c.BodyParser(&in); err != nil {
		return h.respond(c, OperationExtract, invalidBody(err))
	}
	return h.respond(c, OperationExtract, h.verify.ExtractPayload(c.UserContext(), in))
}

func (h *DteHandler) respond(c *fiber.Ctx, operation string, res dto.Result) error {
	h.metrics.ObserveOperation(operation, res)
	return c.Status(StatusFor(res)).JSON(res)
}

func invalidBody(err error) dto.Result {
	return dto.Failure(domain.WrapError(domain.KindValidation, "cuerpo inválido", err, "se esperaba un objeto JSON"))
}

// StatusFor traduce el resultado de una operación a status HTTP.
func StatusFor(res dto.Result) int {
	if res.Success {
		return fiber.StatusOK
	}
	switch res.Kind {
	case domain.KindValidation, domain.KindInvalidJwtFormat:
		return fiber.StatusBadRequest
	case domain.KindCertificateNotFound, domain.KindSignatureNotFound:
		return fiber.StatusNotFound
	case domain.KindPasswordMismatch:
		return fiber.StatusUnauthorized
	case domain.KindInvalidCertificateFormat,
		domain.KindCertificateNotActive,
		domain.KindCertificateNotVerified,
		domain.KindMissingPrivateKey,
		domain.KindInvalidKeyFormat,
		domain.KindKeyDecryptionFailed,
		domain.KindPublicKeyExtractionFailed,
		domain.KindSigningFailed,
		domain.KindVerificationFailed,
		domain.KindInvalidSignature:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

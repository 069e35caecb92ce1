package signing

import (
	"context"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
	"github.com/jhoicas/firmador-dte/internal/domain"
	"github.com/jhoicas/firmador-dte/pkg/logger"
)

// Mensajes de éxito de verificación y extracción.
const (
	MessageVerified  = "firma del DTE verificada correctamente"
	MessageExtracted = "payload del DTE extraído (la firma NO fue verificada)"
)

// VerifyUseCase verifica firmas contra la llave pública del certificado del NIT y extrae
// payloads sin verificar.
type VerifyUseCase struct {
	keys     KeyLoader
	verifier TokenVerifier
	log      *logger.Logger
}

// NewVerifyUseCase construye el caso de uso. log puede ser nil.
func NewVerifyUseCase(keys KeyLoader, verifier TokenVerifier, log *logger.Logger) *VerifyUseCase {
	return &VerifyUseCase{keys: keys, verifier: verifier, log: logger.OrNop(log).Named("verify")}
}

// Verify devuelve el payload si la firma corresponde. Una firma inválida se reporta como
// COD_822 con el motivo en errors.
func (uc *VerifyUseCase) Verify(ctx context.Context, req dto.VerifyRequest) dto.Result {
	nit, err := ValidateVerifyRequest(req)
	if err != nil {
		return dto.Failure(err)
	}
	if err := ctx.Err(); err != nil {
		return dto.Failure(err)
	}

	publicKey, err := uc.keys.LoadVerificationKey(nit)
	if err != nil {
		uc.log.Info().Str("nit", nit).Err(err).Msg("no se pudo obtener la llave de verificación")
		return dto.Failure(err)
	}

	res, err := uc.verifier.Verify(req.Token, publicKey)
	if err != nil {
		return dto.Failure(err)
	}
	if !res.Valid {
		uc.log.Info().Str("nit", nit).Str("reason", string(res.Reason)).Msg("firma inválida")
		return dto.Failure(domain.NewError(domain.KindInvalidSignature, "la firma del DTE no es válida",
			string(res.Reason)+": "+res.Reason.Message()))
	}

	verified := true
	out := dto.Success(MessageVerified, res.Payload)
	out.Verified = &verified
	return out
}

// ExtractPayload decodifica el payload sin verificar la firma (verified=false).
func (uc *VerifyUseCase) ExtractPayload(ctx context.Context, req dto.ExtractRequest) dto.Result {
	if err := ValidateExtractRequest(req); err != nil {
		return dto.Failure(err)
	}
	if err := ctx.Err(); err != nil {
		return dto.Failure(err)
	}
	payload, err := uc.verifier.ExtractPayload(req.Token)
	if err != nil {
		return dto.Failure(err)
	}
	verified := false
	out := dto.Success(MessageExtracted, payload)
	out.Verified = &verified
	return out
}

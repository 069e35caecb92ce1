package signing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
	"github.com/jhoicas/firmador-dte/internal/domain"
	domdte "github.com/jhoicas/firmador-dte/internal/domain/dte"
	"github.com/jhoicas/firmador-dte/internal/domain/entity"
	"github.com/jhoicas/firmador-dte/internal/domain/repository"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/jws"
	"github.com/jhoicas/firmador-dte/pkg/logger"
	"github.com/jhoicas/firmador-dte/pkg/secret"
)

// MessageSigned mensaje de éxito de la firma.
const MessageSigned = "DTE firmado correctamente"

// SignUseCase firma DTE: valida la solicitud, carga la llave del NIT y produce el JWS.
// Con audit != nil registra cada firma (sin llaves ni token).
type SignUseCase struct {
	keys   KeyLoader
	signer DocumentSigner
	audit  repository.SignatureRepository
	log    *logger.Logger
	now    func() time.Time
}

// NewSignUseCase construye el caso de uso. audit y log pueden ser nil.
func NewSignUseCase(keys KeyLoader, signer DocumentSigner, audit repository.SignatureRepository, log *logger.Logger) *SignUseCase {
	return &SignUseCase{
		keys:   keys,
		signer: signer,
		audit:  audit,
		log:    logger.OrNop(log).Named("sign"),
		now:    time.Now,
	}
}

// Sign firma dteJson con el certificado del NIT. Nunca devuelve error: el resultado lleva
// el código correspondiente.
func (uc *SignUseCase) Sign(ctx context.Context, req dto.SignRequest) dto.Result {
	token, err := uc.sign(ctx, req)
	if err != nil {
		uc.log.Info().Str("nit", req.Nit).Str("code", domain.KindOf(err).Code()).Err(err).Msg("firma rechazada")
		return dto.Failure(err)
	}
	return dto.Success(MessageSigned, token)
}

// SignFile lee una solicitud {nit, passwordPri, dteJson} desde un archivo JSON y la firma.
func (uc *SignUseCase) SignFile(ctx context.Context, path string) dto.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return dto.Failure(domain.WrapError(domain.KindValidation, "no se pudo leer la solicitud", err, "archivo: "+path))
	}
	defer secret.Wipe(data)

	var req dto.SignRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return dto.Failure(domain.WrapError(domain.KindValidation, "la solicitud no es JSON válido", err, "archivo: "+path))
	}
	return uc.Sign(ctx, req)
}

func (uc *SignUseCase) sign(ctx context.Context, req dto.SignRequest) (string, error) {
	// ── 1. Validar solicitud ──────────────────────────────────────────────────
	nit, err := ValidateSignRequest(req)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	password := secret.FromString(req.PasswordPri)
	defer password.Destroy()

	// ── 2. Cargar y validar certificado ───────────────────────────────────────
	key, err := uc.keys.LoadSigningKey(nit, password)
	if err != nil {
		return "", err
	}
	defer key.Destroy()

	// ── 3. Firmar (aquí se descifra la llave) ─────────────────────────────────
	token, err := uc.signer.Sign(req.DteJson, key.PEM.Bytes(), password.Bytes())
	if err != nil {
		return "", err
	}

	// ── 4. Auditoría (no bloquea la firma) ────────────────────────────────────
	uc.record(ctx, nit, key, req.DteJson, token)
	uc.log.Info().Str("nit", nit).Str("schema", key.Variant.String()).Msg("DTE firmado")
	return token, nil
}

func (uc *SignUseCase) record(ctx context.Context, nit string, key *entity.SigningKey, document []byte, token string) {
	if uc.audit == nil {
		return
	}
	rec, err := buildSignatureRecord(nit, key, document, token, uc.now())
	if err != nil {
		uc.log.Warn().Str("nit", nit).Err(err).Msg("auditoría: no se pudo resumir el DTE")
		return
	}
	if err := uc.audit.Create(ctx, rec); err != nil {
		uc.log.Error().Str("nit", nit).Err(err).Msg("auditoría: no se pudo registrar la firma")
	}
}

func buildSignatureRecord(nit string, key *entity.SigningKey, document []byte, token string, now time.Time) (*entity.SignatureRecord, error) {
	summary, err := domdte.Summarize(document)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("token con %d segmentos", len(parts))
	}
	payload, err := jws.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decodificar payload: %w", err)
	}
	return &entity.SignatureRecord{
		NIT:              nit,
		Variant:          key.Variant.String(),
		TipoDte:          summary.TipoDte,
		CodigoGeneracion: summary.CodigoGeneracion,
		NumeroControl:    summary.NumeroControl,
		TotalPagar:       summary.TotalPagar,
		PayloadSHA256:    domdte.PayloadDigest(payload),
		SignedAt:         now.UTC(),
	}, nil
}

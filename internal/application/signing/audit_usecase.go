package signing

import (
	"context"
	"strings"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
	"github.com/jhoicas/firmador-dte/internal/domain"
	"github.com/jhoicas/firmador-dte/internal/domain/repository"
	"github.com/jhoicas/firmador-dte/pkg/logger"
)

// MaxPageLimit tope de registros por página en el historial de firmas.
const MaxPageLimit = dto.MaxPageLimit

// AuditUseCase consulta el historial de firmas registrado por SignUseCase.
type AuditUseCase struct {
	repo repository.SignatureRepository
	log  *logger.Logger
}

// NewAuditUseCase construye el caso de uso.
func NewAuditUseCase(repo repository.SignatureRepository, log *logger.Logger) *AuditUseCase {
	return &AuditUseCase{repo: repo, log: logger.OrNop(log).Named("audit")}
}

// List devuelve las firmas del NIT, más recientes primero.
func (uc *AuditUseCase) List(ctx context.Context, rawNIT string, page dto.PageRequest) dto.Result {
	nit, errs := validateNIT(rawNIT)
	if len(errs) > 0 {
		return dto.Failure(domain.NewError(domain.KindValidation, "la validación de la solicitud falló", errs...))
	}
	page.DefaultPage()

	recs, err := uc.repo.ListByNIT(ctx, nit, page.Limit, page.Offset)
	if err != nil {
		uc.log.Error().Str("nit", nit).Err(err).Msg("listar firmas")
		return dto.Failure(err)
	}
	items := make([]dto.SignatureRecordResponse, 0, len(recs))
	for _, rec := range recs {
		items = append(items, dto.SignatureRecordFromEntity(rec))
	}
	return dto.Success("historial de firmas", dto.SignatureListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// FindByCodigoGeneracion devuelve las firmas de un DTE concreto (puede haber varias
// versiones del mismo documento).
func (uc *AuditUseCase) FindByCodigoGeneracion(ctx context.Context, rawNIT, codigo string) dto.Result {
	nit, errs := validateNIT(rawNIT)
	codigo = strings.ToUpper(strings.TrimSpace(codigo))
	if codigo == "" {
		errs = append(errs, "el codigoGeneracion es requerido")
	}
	if len(errs) > 0 {
		return dto.Failure(domain.NewError(domain.KindValidation, "la validación de la solicitud falló", errs...))
	}

	recs, err := uc.repo.GetByCodigoGeneracion(ctx, nit, codigo)
	if err != nil {
		uc.log.Error().Str("nit", nit).Err(err).Msg("buscar firma")
		return dto.Failure(err)
	}
	if len(recs) == 0 {
		return dto.Failure(domain.NewError(domain.KindSignatureNotFound,
			"no hay firmas registradas para el DTE "+codigo))
	}
	items := make([]dto.SignatureRecordResponse, 0, len(recs))
	for _, rec := range recs {
		items = append(items, dto.SignatureRecordFromEntity(rec))
	}
	return dto.Success("historial de firmas", items)
}

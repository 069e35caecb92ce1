package repository

import (
	"context"

	"github.com/jhoicas/firmador-dte/internal/domain/entity"
)

// SignatureRepository puerto de persistencia del registro de firmas (auditoría).
type SignatureRepository interface {
	Create(ctx context.Context, record *entity.SignatureRecord) error
	GetByCodigoGeneracion(ctx context.Context, nit, codigoGeneracion string) ([]*entity.SignatureRecord, error)
	ListByNIT(ctx context.Context, nit string, limit, offset int) ([]*entity.SignatureRecord, error)
}

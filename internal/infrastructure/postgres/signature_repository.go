package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/firmador-dte/internal/domain/entity"
	"github.com/jhoicas/firmador-dte/internal/domain/repository"
)

var _ repository.SignatureRepository = (*SignatureRepo)(nil)

// SignatureRepo implementación de SignatureRepository (usable con pool o tx).
type SignatureRepo struct {
	q Querier
}

// NewSignatureRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSignatureRepository(q Querier) *SignatureRepo {
	return &SignatureRepo{q: q}
}

const signatureColumns = `id, nit, schema_variant, tipo_dte, codigo_generacion, numero_control, total_pagar, payload_sha256, signed_at`

// Create persiste el registro. Firmar dos veces el mismo payload para el mismo NIT no duplica filas.
func (r *SignatureRepo) Create(ctx context.Context, rec *entity.SignatureRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query := `
		INSERT INTO dte_signatures (` + signatureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.NIT, rec.Variant, rec.TipoDte, rec.CodigoGeneracion, rec.NumeroControl,
		rec.TotalPagar, rec.PayloadSHA256, rec.SignedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		if isUndefinedTable(err) {
			return fmt.Errorf("insert dte_signature: tabla inexistente, falta aplicar migraciones: %w", err)
		}
		return fmt.Errorf("insert dte_signature: %w", err)
	}
	return nil
}

// GetByCodigoGeneracion firmas registradas de un documento (puede haber varias versiones del payload).
func (r *SignatureRepo) GetByCodigoGeneracion(ctx context.Context, nit, codigoGeneracion string) ([]*entity.SignatureRecord, error) {
	query := `
		SELECT ` + signatureColumns + `
		FROM dte_signatures WHERE nit = $1 AND codigo_generacion = $2
		ORDER BY signed_at DESC`
	rows, err := r.q.Query(ctx, query, nit, codigoGeneracion)
	if err != nil {
		return nil, fmt.Errorf("get dte_signatures by codigo: %w", err)
	}
	return collectSignatures(rows)
}

// ListByNIT lista las firmas del emisor, más recientes primero.
func (r *SignatureRepo) ListByNIT(ctx context.Context, nit string, limit, offset int) ([]*entity.SignatureRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + signatureColumns + `
		FROM dte_signatures WHERE nit = $1
		ORDER BY signed_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, nit, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list dte_signatures: %w", err)
	}
	return collectSignatures(rows)
}

func collectSignatures(rows pgx.Rows) ([]*entity.SignatureRecord, error) {
	defer rows.Close()
	var list []*entity.SignatureRecord
	for rows.Next() {
		var s entity.SignatureRecord
		if err := rows.Scan(
			&s.ID, &s.NIT, &s.Variant, &s.TipoDte, &s.CodigoGeneracion, &s.NumeroControl,
			&s.TotalPagar, &s.PayloadSHA256, &s.SignedAt,
		); err != nil {
			return nil, fmt.Errorf("scan dte_signature: %w", err)
		}
		list = append(list, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows dte_signatures: %w", err)
	}
	return list, nil
}

package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/firmador-dte/internal/domain"
	"github.com/jhoicas/firmador-dte/internal/domain/entity"
)

// SignRequest cuerpo de POST /api/dte/sign (nombres de campo del contrato de Hacienda).
type SignRequest struct {
	Nit         string          `json:"nit"`
	PasswordPri string          `json:"passwordPri"`
	DteJson     json.RawMessage `json:"dteJson" swaggertype:"object"`
}

// VerifyRequest cuerpo de POST /api/dte/verify.
type VerifyRequest struct {
	Token string `json:"token"`
	Nit   string `json:"nit"`
}

// ExtractRequest cuerpo de POST /api/dte/extract.
type ExtractRequest struct {
	Token string `json:"token"`
}

// Result contrato de respuesta de todas las operaciones.
//
//	éxito: {success:true, message, data}
//	error: {success:false, errorCode, message, errors}
type Result struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Data      any      `json:"data,omitempty"`
	Verified  *bool    `json:"verified,omitempty"`
	ErrorCode string   `json:"errorCode,omitempty"`
	Errors    []string `json:"errors,omitempty"`

	// Kind del error de dominio; lo usan HTTP y CLI para el status, no se serializa.
	Kind domain.Kind `json:"-"`
}

// Success resultado exitoso.
func Success(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Failure resultado de error a partir de cualquier error. Los errores que no son de dominio
// se reportan como COD_500 sin exponer su tipo.
func Failure(err error) Result {
	kind := domain.KindOf(err)
	if kind == domain.KindUnexpected {
		msg := "error inesperado"
		if err != nil {
			msg += ": " + err.Error()
		}
		return Result{Success: false, Message: msg, ErrorCode: kind.Code(), Errors: []string{}, Kind: kind}
	}
	de := domain.AsError(err)
	details := de.Details
	if details == nil {
		details = []string{}
	}
	return Result{Success: false, Message: de.Error(), ErrorCode: kind.Code(), Errors: details, Kind: kind}
}

// SignatureRecordResponse registro de auditoría expuesto por GET /api/dte/signatures.
type SignatureRecordResponse struct {
	ID               string           `json:"id"`
	NIT              string           `json:"nit"`
	Variant          string           `json:"variant"`
	TipoDte          string           `json:"tipoDte,omitempty"`
	CodigoGeneracion string           `json:"codigoGeneracion,omitempty"`
	NumeroControl    string           `json:"numeroControl,omitempty"`
	TotalPagar       *decimal.Decimal `json:"totalPagar,omitempty" swaggertype:"number"`
	PayloadSHA256    string           `json:"payloadSha256"`
	SignedAt         time.Time        `json:"signedAt"`
}

// SignatureRecordFromEntity convierte el registro de dominio.
func SignatureRecordFromEntity(rec *entity.SignatureRecord) SignatureRecordResponse {
	out := SignatureRecordResponse{
		ID:               rec.ID,
		NIT:              rec.NIT,
		Variant:          rec.Variant,
		TipoDte:          rec.TipoDte,
		CodigoGeneracion: rec.CodigoGeneracion,
		NumeroControl:    rec.NumeroControl,
		PayloadSHA256:    rec.PayloadSHA256,
		SignedAt:         rec.SignedAt,
	}
	if rec.TotalPagar.Valid {
		total := rec.TotalPagar.Decimal
		out.TotalPagar = &total
	}
	return out
}

// SignatureListResponse página de registros.
type SignatureListResponse struct {
	Items []SignatureRecordResponse `json:"items"`
	Page  PageResponse              `json:"page"`
}

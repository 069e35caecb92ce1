package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignatureRecord registro de auditoría de un DTE firmado. No contiene llaves ni el token.
type SignatureRecord struct {
	ID               string
	NIT              string
	Variant          string // legacy | mh
	TipoDte          string
	CodigoGeneracion string
	NumeroControl    string
	TotalPagar       decimal.NullDecimal
	PayloadSHA256    string // SHA-256 hex del payload firmado
	SignedAt         time.Time
}

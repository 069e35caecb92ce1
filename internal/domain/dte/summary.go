// Package dte lee los datos de identificación de un Documento Tributario Electrónico
// (esquema JSON del Ministerio de Hacienda) para auditoría.
package dte

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Summary campos de un DTE relevantes para el registro de firmas.
type Summary struct {
	TipoDte          string
	CodigoGeneracion string
	NumeroControl    string
	TotalPagar       decimal.NullDecimal
}

type document struct {
	Identificacion *struct {
		TipoDte          string `json:"tipoDte"`
		CodigoGeneracion string `json:"codigoGeneracion"`
		NumeroControl    string `json:"numeroControl"`
	} `json:"identificacion"`
	Resumen *struct {
		TotalPagar json.Number `json:"totalPagar"`
	} `json:"resumen"`
}

// Summarize extrae el resumen de un DTE. Los campos ausentes quedan vacíos; solo falla
// si el JSON no es un objeto válido o totalPagar no es numérico.
func Summarize(raw []byte) (Summary, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Summary{}, fmt.Errorf("dte: decodificar documento: %w", err)
	}
	var s Summary
	if doc.Identificacion != nil {
		s.TipoDte = strings.TrimSpace(doc.Identificacion.TipoDte)
		s.CodigoGeneracion = strings.ToUpper(strings.TrimSpace(doc.Identificacion.CodigoGeneracion))
		s.NumeroControl = strings.TrimSpace(doc.Identificacion.NumeroControl)
	}
	if doc.Resumen != nil && doc.Resumen.TotalPagar != "" {
		total, err := decimal.NewFromString(doc.Resumen.TotalPagar.String())
		if err != nil {
			return Summary{}, fmt.Errorf("dte: totalPagar inválido: %w", err)
		}
		s.TotalPagar = decimal.NewNullDecimal(total.Round(2))
	}
	return s, nil
}

// PayloadDigest SHA-256 hex del payload firmado (identifica el documento sin guardarlo).
func PayloadDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

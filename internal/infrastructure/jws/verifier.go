package jws

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jhoicas/firmador-dte/internal/domain"
)

// Reason motivo por el que una firma no es válida.
type Reason string

const (
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonExpired          Reason = "token_expired"
	ReasonNotYetValid      Reason = "token_not_yet_valid"
	ReasonInvalidClaims    Reason = "invalid_claims"
)

// Message descripción para la respuesta.
func (r Reason) Message() string {
	switch r {
	case ReasonInvalidSignature:
		return "la firma no corresponde al documento o a la llave pública"
	case ReasonExpired:
		return "el token expiró"
	case ReasonNotYetValid:
		return "el token aún no es válido"
	case ReasonInvalidClaims:
		return "claims de tiempo inválidos"
	default:
		return ""
	}
}

// VerificationResult Valid=false con Reason cuando la firma no corresponde; el error se reserva
// para tokens o llaves mal formados.
type VerificationResult struct {
	Valid      bool
	Payload    any
	RawPayload []byte
	Reason     Reason
}

// Verifier valida tokens RS512.
type Verifier struct {
	now    func() time.Time
	leeway time.Duration
}

// VerifierOption configura el verificador.
type VerifierOption func(*Verifier)

// WithClock reloj para validar exp/nbf.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// WithLeeway tolerancia en la validación de exp/nbf.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.leeway = d }
}

// NewVerifier crea el verificador.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify comprueba la firma de token con publicKeyPEM (PKIX, PKCS#1 o certificado).
func (v *Verifier) Verify(token, publicKeyPEM string) (*VerificationResult, error) {
	seg, err := split(token)
	if err != nil {
		return nil, err
	}

	headerJSON, err := DecodeSegment(seg.header)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidJwtFormat, "formato JWT inválido: header no es base64url", err)
	}
	var h struct {
		Alg string `json:"alg"`
		Typ string `json:"typ"`
	}
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return nil, domain.WrapError(domain.KindInvalidJwtFormat, "formato JWT inválido: header no es JSON", err)
	}
	payloadRaw, err := DecodeSegment(seg.payload)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidJwtFormat, "formato JWT inválido: payload no es base64url", err)
	}
	if h.Alg != Algorithm {
		return nil, domain.NewError(domain.KindVerificationFailed,
			fmt.Sprintf("no se pudo verificar: algoritmo %q no soportado, se esperaba %s", h.Alg, Algorithm))
	}

	if strings.TrimSpace(publicKeyPEM) == "" {
		return nil, domain.NewError(domain.KindVerificationFailed, "no se pudo verificar: llave pública vacía")
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, domain.WrapError(domain.KindVerificationFailed, "no se pudo verificar: llave pública inválida", err)
	}

	// Una firma que no decodifica es una firma alterada, no un token mal formado.
	sig, err := DecodeSegment(seg.signature)
	if err != nil {
		return &VerificationResult{Valid: false, RawPayload: payloadRaw, Reason: ReasonInvalidSignature}, nil
	}
	if err := jwt.SigningMethodRS512.Verify(seg.header+"."+seg.payload, sig, pub); err != nil {
		if !errors.Is(err, rsa.ErrVerification) {
			return nil, domain.WrapError(domain.KindVerificationFailed, "no se pudo verificar la firma", err)
		}
		return &VerificationResult{Valid: false, RawPayload: payloadRaw, Reason: ReasonInvalidSignature}, nil
	}

	payload, err := decodeJSON(payloadRaw)
	if err != nil {
		return nil, domain.WrapError(domain.KindVerificationFailed, "no se pudo verificar: payload no es JSON", err)
	}
	reason := v.checkTimeClaims(payload)
	return &VerificationResult{Valid: reason == "", Payload: payload, RawPayload: payloadRaw, Reason: reason}, nil
}

// ExtractPayload decodifica el payload SIN verificar la firma. Acepta base64url o estándar,
// con o sin relleno.
func (v *Verifier) ExtractPayload(token string) (any, error) {
	seg, err := split(token)
	if err != nil {
		return nil, err
	}
	raw, err := decodeLenient(seg.payload)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidJwtFormat, "formato JWT inválido: payload no es base64", err)
	}
	payload, err := decodeJSON(raw)
	if err != nil {
		return nil, domain.WrapError(domain.KindVerificationFailed, "el payload no es JSON válido", err)
	}
	return payload, nil
}

// checkTimeClaims valida exp/nbf si el payload es un objeto que los trae.
func (v *Verifier) checkTimeClaims(payload any) Reason {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	validator := jwt.NewValidator(jwt.WithTimeFunc(v.now), jwt.WithLeeway(v.leeway))
	err := validator.Validate(jwt.MapClaims(obj))
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ReasonNotYetValid
	default:
		return ReasonInvalidClaims
	}
}

type segments struct {
	header, payload, signature string
}

func split(token string) (segments, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return segments{}, domain.NewError(domain.KindInvalidJwtFormat, "formato JWT inválido: token vacío")
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return segments{}, domain.NewError(domain.KindInvalidJwtFormat,
			fmt.Sprintf("formato JWT inválido: se esperaban 3 segmentos, se recibieron %d", len(parts)))
	}
	for i, name := range []string{"header", "payload", "firma"} {
		if parts[i] == "" {
			return segments{}, domain.NewError(domain.KindInvalidJwtFormat, "formato JWT inválido: falta el segmento "+name)
		}
	}
	return segments{header: parts[0], payload: parts[1], signature: parts[2]}, nil
}

// decodeJSON usa json.Number para no perder precisión en montos.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("datos adicionales tras el JSON")
	}
	return out, nil
}

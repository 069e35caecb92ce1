package domain

import (
	"errors"
	"strings"
)

// Kind clasifica los errores de dominio. Cada Kind tiene un código estable (ver Code).
type Kind string

// Tipos de error de dominio (sin dependencias externas).
const (
	KindValidation                Kind = "Validation"
	KindCertificateNotFound       Kind = "CertificateNotFound"
	KindInvalidCertificateFormat  Kind = "InvalidCertificateFormat"
	KindCertificateNotActive      Kind = "CertificateNotActive"
	KindCertificateNotVerified    Kind = "CertificateNotVerified"
	KindMissingPrivateKey         Kind = "MissingPrivateKey"
	KindPasswordMismatch          Kind = "PasswordMismatch"
	KindInvalidKeyFormat          Kind = "InvalidKeyFormat"
	KindKeyDecryptionFailed       Kind = "KeyDecryptionFailed"
	KindPublicKeyExtractionFailed Kind = "PublicKeyExtractionFailed"
	KindSigningFailed             Kind = "SigningFailed"
	KindInvalidJwtFormat          Kind = "InvalidJwtFormat"
	KindVerificationFailed        Kind = "VerificationFailed"
	KindInvalidSignature          Kind = "InvalidSignature"
	KindSignatureNotFound         Kind = "SignatureNotFound"
	KindUnexpected                Kind = "Unexpected"
)

// Códigos de respuesta. Los del firmador original (COD_8xx) se conservan.
const (
	CodeDefault          = "COD_001"
	CodeValidation       = "COD_803"
	CodeNotFound         = "COD_812"
	CodeInvalidCert      = "COD_813"
	CodePasswordMismatch = "COD_814"
	CodeSigningFailed    = "COD_815"
	CodeInvalidKey       = "COD_817"
	CodeKeyDecryption    = "COD_818"
	CodePublicKey        = "COD_819"
	CodeVerification     = "COD_820"
	CodeJwtFormat        = "COD_821"
	CodeInvalidSignature = "COD_822"
	CodeAuditNotFound    = "COD_404"
	CodeUnexpected       = "COD_500"
)

var kindCodes = map[Kind]string{
	KindValidation:                CodeValidation,
	KindCertificateNotFound:       CodeNotFound,
	KindInvalidCertificateFormat:  CodeInvalidCert,
	KindCertificateNotActive:      CodeInvalidCert,
	KindCertificateNotVerified:    CodeInvalidCert,
	KindMissingPrivateKey:         CodeInvalidCert,
	KindPasswordMismatch:          CodePasswordMismatch,
	KindInvalidKeyFormat:          CodeInvalidKey,
	KindKeyDecryptionFailed:       CodeKeyDecryption,
	KindPublicKeyExtractionFailed: CodePublicKey,
	KindSigningFailed:             CodeSigningFailed,
	KindInvalidJwtFormat:          CodeJwtFormat,
	KindVerificationFailed:        CodeVerification,
	KindInvalidSignature:          CodeInvalidSignature,
	KindSignatureNotFound:         CodeAuditNotFound,
	KindUnexpected:                CodeUnexpected,
}

// Code devuelve el código estable del Kind.
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return CodeDefault
}

// Error es el único tipo de error de dominio: {kind, mensaje, detalles}.
// Err guarda la causa original (opcional) para diagnóstico.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

// Error implementa error.
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Message != "" {
		sb.WriteString(e.Message)
	} else {
		sb.WriteString(string(e.Kind))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap expone la causa.
func (e *Error) Unwrap() error { return e.Err }

// Is compara por Kind, de modo que errors.Is(err, domain.ErrPasswordMismatch) funciona
// con cualquier instancia del mismo Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Code devuelve el código estable del error.
func (e *Error) Code() string { return e.Kind.Code() }

// Errores de referencia para errors.Is.
var (
	ErrValidation                = &Error{Kind: KindValidation}
	ErrCertificateNotFound       = &Error{Kind: KindCertificateNotFound}
	ErrInvalidCertificateFormat  = &Error{Kind: KindInvalidCertificateFormat}
	ErrCertificateNotActive      = &Error{Kind: KindCertificateNotActive}
	ErrCertificateNotVerified    = &Error{Kind: KindCertificateNotVerified}
	ErrMissingPrivateKey         = &Error{Kind: KindMissingPrivateKey}
	ErrPasswordMismatch          = &Error{Kind: KindPasswordMismatch}
	ErrInvalidKeyFormat          = &Error{Kind: KindInvalidKeyFormat}
	ErrKeyDecryptionFailed       = &Error{Kind: KindKeyDecryptionFailed}
	ErrPublicKeyExtractionFailed = &Error{Kind: KindPublicKeyExtractionFailed}
	ErrSigningFailed             = &Error{Kind: KindSigningFailed}
	ErrInvalidJwtFormat          = &Error{Kind: KindInvalidJwtFormat}
	ErrVerificationFailed        = &Error{Kind: KindVerificationFailed}
	ErrInvalidSignature          = &Error{Kind: KindInvalidSignature}
)

// NewError construye un error de dominio.
func NewError(kind Kind, message string, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// WrapError construye un error de dominio conservando la causa.
func WrapError(kind Kind, message string, cause error, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details, Err: cause}
}

// KindOf devuelve el Kind del primer *Error en la cadena, o KindUnexpected.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}

// CertificateNotFound construye el error para un NIT sin archivo de certificado.
func CertificateNotFound(nit string) *Error {
	return NewError(KindCertificateNotFound, "no se encontró el certificado para el NIT: "+nit)
}

// AsError devuelve el primer *Error de la cadena, o nil.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}

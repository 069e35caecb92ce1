// Package certificate contiene las reglas de dominio sobre el estado de un certificado DTE
// antes de usar su llave privada.
package certificate

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/jhoicas/firmador-dte/internal/domain"
	"github.com/jhoicas/firmador-dte/internal/domain/entity"
	"github.com/jhoicas/firmador-dte/pkg/secret"
)

// Validator valida activo, verificado, presencia de llave y contraseña.
//
// La comprobación de contraseña es distinta por esquema: Legacy compara SHA-512 contra
// passwordHash; MH no guarda hash y difiere la validación al descifrado de la llave.
type Validator struct{}

// NewValidator crea el validador.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate aplica las reglas en orden: activo, verificado, llave, contraseña.
func (v *Validator) Validate(record *entity.CertificateRecord, password *secret.Secret) error {
	if record == nil {
		return domain.NewError(domain.KindInvalidCertificateFormat, "certificado inválido: registro vacío")
	}
	if !record.Active {
		return domain.NewError(domain.KindCertificateNotActive, "certificado inválido: el certificado no está activo")
	}
	if !isVerified(record) {
		return domain.NewError(domain.KindCertificateNotVerified, "certificado inválido: el certificado no está verificado")
	}
	if len(record.KeyMaterial) == 0 {
		return domain.NewError(domain.KindMissingPrivateKey, "certificado inválido: falta la llave privada")
	}
	if record.Variant == entity.SchemaMinistry {
		return nil
	}
	return validatePasswordHash(record, password)
}

func isVerified(record *entity.CertificateRecord) bool {
	switch record.Variant {
	case entity.SchemaMinistry:
		return record.Verified.Present
	case entity.SchemaLegacy:
		return record.Verified.Value == "true"
	default:
		return false
	}
}

func validatePasswordHash(record *entity.CertificateRecord, password *secret.Secret) error {
	if record.PasswordHash == nil || strings.TrimSpace(*record.PasswordHash) == "" {
		return domain.NewError(domain.KindInvalidCertificateFormat, "certificado inválido: falta el hash de la contraseña")
	}
	sum := sha512.Sum512(password.Bytes())
	defer secret.Wipe(sum[:])

	expected := strings.ToLower(strings.TrimSpace(*record.PasswordHash))
	got := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
		return domain.NewError(domain.KindPasswordMismatch, "la contraseña del certificado no coincide")
	}
	return nil
}

// HashPassword devuelve el SHA-512 hex de la contraseña, en el formato de <passwordHash>.
func HashPassword(password []byte) string {
	sum := sha512.Sum512(password)
	return hex.EncodeToString(sum[:])
}

package signing

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
	"github.com/jhoicas/firmador-dte/internal/domain"
	"github.com/jhoicas/firmador-dte/pkg/dte"
)

// Límites de la contraseña de la llave privada (passwordPri).
const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
)

// ValidateSignRequest acumula todas las violaciones en un único error COD_803 y devuelve el
// NIT normalizado (solo dígitos).
func ValidateSignRequest(req dto.SignRequest) (string, error) {
	var errs []string

	nit, nitErrs := validateNIT(req.Nit)
	errs = append(errs, nitErrs...)

	switch n := utf8.RuneCountInString(req.PasswordPri); {
	case strings.TrimSpace(req.PasswordPri) == "":
		errs = append(errs, "el campo requerido 'passwordPri' falta o está vacío")
	case n < MinPasswordLength:
		errs = append(errs, fmt.Sprintf("la contraseña debe tener al menos %d caracteres", MinPasswordLength))
	case n > MaxPasswordLength:
		errs = append(errs, fmt.Sprintf("la contraseña no debe exceder %d caracteres", MaxPasswordLength))
	}

	raw := bytes.TrimSpace(req.DteJson)
	switch {
	case len(raw) == 0:
		errs = append(errs, "el campo requerido 'dteJson' falta o está vacío")
	case bytes.Equal(raw, []byte("null")):
		errs = append(errs, "dteJson no puede ser null")
	}

	if len(errs) > 0 {
		return "", domain.NewError(domain.KindValidation, "la validación de la solicitud falló", errs...)
	}
	return nit, nil
}

// ValidateVerifyRequest token requerido y NIT de 14 dígitos.
func ValidateVerifyRequest(req dto.VerifyRequest) (string, error) {
	var errs []string
	if strings.TrimSpace(req.Token) == "" {
		errs = append(errs, "el token JWS es requerido")
	}
	nit, nitErrs := validateNIT(req.Nit)
	errs = append(errs, nitErrs...)
	if len(errs) > 0 {
		return "", domain.NewError(domain.KindValidation, "la validación de la solicitud falló", errs...)
	}
	return nit, nil
}

// ValidateExtractRequest token requerido.
func ValidateExtractRequest(req dto.ExtractRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return domain.NewError(domain.KindValidation, "la validación de la solicitud falló", "el token JWS es requerido")
	}
	return nil
}

func validateNIT(raw string) (string, []string) {
	if strings.TrimSpace(raw) == "" {
		return "", []string{"el campo requerido 'nit' falta o está vacío"}
	}
	nit, err := dte.NormalizeNIT(raw)
	if err != nil {
		return "", []string{fmt.Sprintf("el NIT debe tener exactamente %d dígitos", dte.NITLength)}
	}
	return nit, nil
}

// Package dte utilidades de identificadores de Hacienda (El Salvador).
package dte

import (
	"fmt"
	"unicode"
)

// NITLength dígitos de un NIT salvadoreño (formato impreso 0614-010190-101-2).
const NITLength = 14

// NormalizeNIT quita guiones, puntos y espacios y valida que queden exactamente 14 dígitos.
// Cualquier otro carácter invalida el NIT.
func NormalizeNIT(nit string) (string, error) {
	digits := make([]byte, 0, NITLength)
	for _, r := range nit {
		switch {
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digits = append(digits, byte(r))
		case r == '-' || r == '.' || unicode.IsSpace(r):
		default:
			return "", fmt.Errorf("dte: NIT con carácter inválido %q", r)
		}
	}
	if len(digits) != NITLength {
		return "", fmt.Errorf("dte: el NIT debe tener %d dígitos, se encontraron %d", NITLength, len(digits))
	}
	return string(digits), nil
}

// FormatNIT devuelve el NIT con el formato impreso ####-######-###-#. Si no es válido
// se devuelve tal cual.
func FormatNIT(nit string) string {
	n, err := NormalizeNIT(nit)
	if err != nil {
		return nit
	}
	return fmt.Sprintf("%s-%s-%s-%s", n[:4], n[4:10], n[10:13], n[13:])
}

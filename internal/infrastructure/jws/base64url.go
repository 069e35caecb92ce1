package jws

import (
	"encoding/base64"
	"strings"
)

// EncodeSegment base64url sin relleno.
func EncodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeSegment base64url estricto: los bits sobrantes del último carácter deben ser cero, así
// cada segmento tiene una sola codificación válida. Tolera el relleno '=' que agregan algunos
// clientes.
func DecodeSegment(seg string) ([]byte, error) {
	return base64.RawURLEncoding.Strict().DecodeString(strings.TrimRight(seg, "="))
}

// decodeLenient acepta base64url o estándar, con o sin relleno (lectura de payload sin verificar).
func decodeLenient(seg string) ([]byte, error) {
	s := strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimRight(seg, "="))
	if rem := len(s) % 4; rem > 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return base64.StdEncoding.DecodeString(s)
}

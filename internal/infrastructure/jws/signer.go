// Package jws firma y verifica DTE como JWS compacto RS512 (header.payload.firma en base64url).
package jws

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jhoicas/firmador-dte/internal/domain"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/keys"
)

// Algorithm único algoritmo aceptado.
const Algorithm = "RS512"

// header fijo; se serializa siempre compacto.
var header = []byte(`{"alg":"RS512","typ":"JWT"}`)

// PayloadMode controla la serialización JSON del documento antes de firmar.
type PayloadMode int

const (
	// PayloadCompact JSON compacto, sin escapar HTML (&, <, >). Valor por defecto.
	PayloadCompact PayloadMode = iota
	// PayloadPretty JSON indentado con 4 espacios, unicode y barras sin escapar.
	PayloadPretty
)

// String nombre del modo (config SIGNING_PAYLOAD_MODE).
func (m PayloadMode) String() string {
	if m == PayloadPretty {
		return "pretty"
	}
	return "compact"
}

// ParsePayloadMode interpreta compact | pretty.
func ParsePayloadMode(s string) (PayloadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compact":
		return PayloadCompact, nil
	case "pretty":
		return PayloadPretty, nil
	default:
		return PayloadCompact, fmt.Errorf("modo de payload desconocido %q (compact|pretty)", s)
	}
}

// Signer produce el JWS. Sin estado entre llamadas; seguro para uso concurrente.
type Signer struct {
	normalizer *keys.Normalizer
	mode       PayloadMode
}

// NewSigner crea el firmador. normalizer puede ser nil.
func NewSigner(normalizer *keys.Normalizer, mode PayloadMode) *Signer {
	if normalizer == nil {
		normalizer = keys.NewNormalizer(nil)
	}
	return &Signer{normalizer: normalizer, mode: mode}
}

// Mode modo de serialización configurado.
func (s *Signer) Mode() PayloadMode { return s.mode }

// Sign serializa document, descifra la llave (con password si se indica) y firma con RS512.
// document puede ser cualquier valor serializable o JSON crudo ([]byte / json.RawMessage).
func (s *Signer) Sign(document any, privateKeyPEM, password []byte) (string, error) {
	payload, err := s.EncodePayload(document)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(privateKeyPEM)) == 0 {
		return "", domain.NewError(domain.KindSigningFailed, "no se pudo firmar el documento: llave privada vacía")
	}

	key, err := s.normalizer.ParsePrivateKey(privateKeyPEM, password)
	if err != nil {
		return "", err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return "", domain.NewError(domain.KindSigningFailed, fmt.Sprintf("no se pudo firmar el documento: se requiere llave RSA, se obtuvo %T", key))
	}

	signingString := EncodeSegment(header) + "." + EncodeSegment(payload)
	sig, err := jwt.SigningMethodRS512.Sign(signingString, rsaKey)
	if err != nil {
		return "", domain.WrapError(domain.KindSigningFailed, "no se pudo firmar el documento", err)
	}
	return signingString + "." + EncodeSegment(sig), nil
}

// EncodePayload serializa el documento según el modo. Es exactamente lo que se firma.
func (s *Signer) EncodePayload(document any) ([]byte, error) {
	var raw []byte
	switch d := document.(type) {
	case nil:
		return nil, domain.NewError(domain.KindSigningFailed, "no se pudo firmar el documento: documento vacío")
	case json.RawMessage:
		raw = d
	case []byte:
		raw = d
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(d); err != nil {
			return nil, domain.WrapError(domain.KindSigningFailed, "no se pudo serializar el documento", err)
		}
		raw = buf.Bytes()
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, domain.NewError(domain.KindSigningFailed, "no se pudo firmar el documento: documento vacío")
	}
	if !json.Valid(raw) {
		return nil, domain.NewError(domain.KindSigningFailed, "no se pudo firmar el documento: JSON inválido")
	}

	var out bytes.Buffer
	var err error
	if s.mode == PayloadPretty {
		var plain []byte
		if plain, err = unescapeJSON(raw); err == nil {
			err = json.Indent(&out, plain, "", "    ")
		}
	} else {
		err = json.Compact(&out, raw)
	}
	if err != nil {
		return nil, domain.WrapError(domain.KindSigningFailed, "no se pudo serializar el documento", err)
	}
	return out.Bytes(), nil
}

// unescapeJSON reescribe raw en forma compacta con los strings sin escapes innecesarios
// (\/, \uXXXX de caracteres imprimibles). Conserva el orden de las claves y el texto de los
// números.
func unescapeJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	type frame struct {
		object bool
		n      int
	}
	var (
		out   bytes.Buffer
		stack []frame
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			out.WriteByte(byte(d))
			continue
		}
		if len(stack) > 0 {
			top := &stack[len(stack)-1]
			switch {
			case top.object && top.n%2 == 1:
				out.WriteByte(':')
			case top.n > 0:
				out.WriteByte(',')
			}
			top.n++
		}
		switch v := tok.(type) {
		case json.Delim:
			out.WriteByte(byte(v))
			stack = append(stack, frame{object: v == '{'})
		case string:
			if err := writeString(&out, v); err != nil {
				return nil, err
			}
		case json.Number:
			out.WriteString(v.String())
		case bool:
			out.WriteString(strconv.FormatBool(v))
		case nil:
			out.WriteString("null")
		}
	}
	return out.Bytes(), nil
}

func writeString(out *bytes.Buffer, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	out.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return nil
}

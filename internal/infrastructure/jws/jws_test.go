package jws_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/firmador-dte/internal/domain"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/certificate/certtest"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/jws"
)

var documento = map[string]any{
	"identificacion": map[string]any{
		"tipoDte":          "01",
		"codigoGeneracion": "5A1E2A1C-6B0E-4D7E-9D3B-2F0C8A1B3C4D",
	},
	"receptor": map[string]any{"nombre": "José Peña <S.A.>", "correo": "a/b@x.com"},
	"resumen":  map[string]any{"totalPagar": 113.25},
}

func sign(t *testing.T, doc any) string {
	t.Helper()
	token, err := jws.NewSigner(nil, jws.PayloadCompact).Sign(doc, certtest.PKCS8PEM(t, certtest.RSAKey(t)), nil)
	require.NoError(t, err)
	return token
}

func publicKey(t *testing.T) string {
	return certtest.PublicKeyPEM(t, certtest.RSAKey(t))
}

// ── Firma ────────────────────────────────────────────────────────────────────

func TestSign_EstructuraDelToken(t *testing.T) {
	token := sign(t, documento)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	assert.NotContains(t, token, "=", "base64url sin relleno")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"alg":"RS512","typ":"JWT"}`, string(header))

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"José Peña <S.A.>"`, "sin escapes HTML ni unicode")
	assert.NotContains(t, string(payload), "\n")
}

func TestSign_ModoPretty(t *testing.T) {
	signer := jws.NewSigner(nil, jws.PayloadPretty)
	payload, err := signer.EncodePayload(documento)
	require.NoError(t, err)

	text := string(payload)
	assert.Contains(t, text, "\n    \"identificacion\"")
	assert.Contains(t, text, "a/b@x.com")
	assert.Contains(t, text, "José")
}

func TestSign_ModoPretty_JSONCrudoSinEscapes(t *testing.T) {
	signer := jws.NewSigner(nil, jws.PayloadPretty)
	payload, err := signer.EncodePayload(json.RawMessage(`{"z":"a\/b","n":"Jos\u00e9","m":1.50,"l":[true,null,{"q":"\"x\""}]}`))
	require.NoError(t, err)

	text := string(payload)
	assert.Contains(t, text, `"z": "a/b"`)
	assert.Contains(t, text, `"n": "José"`)
	assert.Contains(t, text, `"m": 1.50`, "los números conservan su texto")
	assert.Contains(t, text, `"q": "\"x\""`)
	assert.Less(t, strings.Index(text, `"z"`), strings.Index(text, `"n"`), "se conserva el orden de las claves")
	assert.True(t, strings.HasPrefix(text, "{\n    \"z\""))
	assert.True(t, json.Valid(payload))
}

func TestSign_JSONCrudo(t *testing.T) {
	signer := jws.NewSigner(nil, jws.PayloadCompact)
	payload, err := signer.EncodePayload(json.RawMessage("{\n  \"a\" : 1 }"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(payload))
}

func TestSign_DocumentoInvalido(t *testing.T) {
	key := certtest.PKCS8PEM(t, certtest.RSAKey(t))
	signer := jws.NewSigner(nil, jws.PayloadCompact)

	for name, doc := range map[string]any{
		"nil":          nil,
		"raw vacío":    json.RawMessage(""),
		"null":         []byte("null"),
		"json roto":    []byte(`{"a":`),
		"no serializa": map[string]any{"f": func() {}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := signer.Sign(doc, key, nil)
			assert.ErrorIs(t, err, domain.ErrSigningFailed)
		})
	}
}

func TestSign_LlaveInvalida(t *testing.T) {
	signer := jws.NewSigner(nil, jws.PayloadCompact)

	_, err := signer.Sign(documento, nil, nil)
	assert.ErrorIs(t, err, domain.ErrSigningFailed)

	_, err = signer.Sign(documento, []byte("no es una llave"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidKeyFormat, "los errores de la llave se propagan tal cual")
}

func TestSign_LlaveNoRSA(t *testing.T) {
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = jws.NewSigner(nil, jws.PayloadCompact).Sign(documento, certtest.PKCS8PEM(t, ec), nil)
	assert.ErrorIs(t, err, domain.ErrSigningFailed)
}

func TestSign_LlaveRSAPequena(t *testing.T) {
	small, err := rsa.GenerateKey(rand.Reader, 512)
	if err != nil {
		t.Skip("el runtime no permite llaves RSA de 512 bits:", err)
	}
	_, err = jws.NewSigner(nil, jws.PayloadCompact).Sign(documento, certtest.PKCS1PEM(small), nil)
	assert.ErrorIs(t, err, domain.ErrSigningFailed)
}

func TestSign_LlaveCifradaConContrasena(t *testing.T) {
	der := certtest.EncryptedPKCS8DER(t, certtest.RSAKey(t), certtest.Password)
	key := pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
	signer := jws.NewSigner(nil, jws.PayloadCompact)

	token, err := signer.Sign(documento, key, []byte(certtest.Password))
	require.NoError(t, err)

	res, err := jws.NewVerifier().Verify(token, publicKey(t))
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = signer.Sign(documento, key, []byte("OtraClave999"))
	assert.ErrorIs(t, err, domain.ErrKeyDecryptionFailed)
}

// ── Verificación ─────────────────────────────────────────────────────────────

func TestVerify_IdaYVuelta(t *testing.T) {
	token := sign(t, documento)

	res, err := jws.NewVerifier().Verify(token, publicKey(t))
	require.NoError(t, err)
	require.True(t, res.Valid)
	assert.Empty(t, res.Reason)

	obj, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	total := obj["resumen"].(map[string]any)["totalPagar"]
	assert.Equal(t, json.Number("113.25"), total, "los montos conservan su representación")
}

func TestVerify_PayloadAlterado(t *testing.T) {
	token := sign(t, documento)
	parts := strings.Split(token, ".")
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"resumen":{"totalPagar":1}}`))

	res, err := jws.NewVerifier().Verify(strings.Join(parts, "."), publicKey(t))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, jws.ReasonInvalidSignature, res.Reason)
}

func TestVerify_FirmaAlteradaCaracterPorCaracter(t *testing.T) {
	token := sign(t, documento)
	parts := strings.Split(token, ".")
	sig := parts[2]
	v := jws.NewVerifier()
	pub := publicKey(t)

	for i := range sig {
		repl := byte('A')
		if sig[i] == 'A' {
			repl = 'B'
		}
		altered := sig[:i] + string(repl) + sig[i+1:]
		res, err := v.Verify(parts[0]+"."+parts[1]+"."+altered, pub)
		require.NoError(t, err, "posición %d", i)
		require.False(t, res.Valid, "posición %d", i)
		assert.Equal(t, jws.ReasonInvalidSignature, res.Reason)
	}
}

func TestVerify_FirmaNoBase64(t *testing.T) {
	parts := strings.Split(sign(t, documento), ".")
	sig := parts[2]

	for name, altered := range map[string]string{
		"carácter inválido al final": sig[:len(sig)-1] + "!",
		"carácter inválido al medio": sig[:10] + "@" + sig[11:],
		"firma corta":                "@@",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := jws.NewVerifier().Verify(parts[0]+"."+parts[1]+"."+altered, publicKey(t))
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, jws.ReasonInvalidSignature, res.Reason)
		})
	}
}

func TestDecodeSegment_Estricto(t *testing.T) {
	// "QQ" decodifica "A"; "QR" solo difiere en bits sobrantes y debe rechazarse.
	b, err := jws.DecodeSegment("QQ")
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), b)

	_, err = jws.DecodeSegment("QR")
	assert.Error(t, err)

	b, err = jws.DecodeSegment("QQ==")
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), b)
}

func TestVerify_OtraLlave(t *testing.T) {
	res, err := jws.NewVerifier().Verify(sign(t, documento), certtest.PublicKeyPEM(t, certtest.OtherRSAKey(t)))
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestVerify_ClaimsDeTiempo(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	verifier := jws.NewVerifier(jws.WithClock(func() time.Time { return now }))

	cases := []struct {
		name string
		doc  map[string]any
		want jws.Reason
	}{
		{"vigente", map[string]any{"exp": now.Add(time.Hour).Unix()}, ""},
		{"expirado", map[string]any{"exp": now.Add(-time.Hour).Unix()}, jws.ReasonExpired},
		{"aún no válido", map[string]any{"nbf": now.Add(time.Hour).Unix()}, jws.ReasonNotYetValid},
		{"exp no numérico", map[string]any{"exp": "mañana"}, jws.ReasonInvalidClaims},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := verifier.Verify(sign(t, tc.doc), publicKey(t))
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Reason)
			assert.Equal(t, tc.want == "", res.Valid)
		})
	}
}

func TestVerify_Tolerancia(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	token := sign(t, map[string]any{"exp": now.Add(-30 * time.Second).Unix()})

	strict, err := jws.NewVerifier(jws.WithClock(func() time.Time { return now })).Verify(token, publicKey(t))
	require.NoError(t, err)
	assert.Equal(t, jws.ReasonExpired, strict.Reason)

	lenient, err := jws.NewVerifier(
		jws.WithClock(func() time.Time { return now }),
		jws.WithLeeway(time.Minute),
	).Verify(token, publicKey(t))
	require.NoError(t, err)
	assert.True(t, lenient.Valid)
}

func TestVerify_AlgoritmoDistinto(t *testing.T) {
	parts := strings.Split(sign(t, documento), ".")
	parts[0] = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	_, err := jws.NewVerifier().Verify(strings.Join(parts, "."), publicKey(t))
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)
}

func TestVerify_LlavePublicaInvalida(t *testing.T) {
	token := sign(t, documento)

	_, err := jws.NewVerifier().Verify(token, "")
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)

	_, err = jws.NewVerifier().Verify(token, "-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n")
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)
}

func TestVerify_FormatoInvalido(t *testing.T) {
	cases := map[string]string{
		"vacío":           "",
		"dos segmentos":   "abc.def",
		"cuatro":          "a.b.c.d",
		"sin payload":     "abc..def",
		"header no b64":   "@@@.e30.c2ln",
		"header no JSON":  base64.RawURLEncoding.EncodeToString([]byte("hola")) + ".e30.c2ln",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := jws.NewVerifier().Verify(token, publicKey(t))
			assert.ErrorIs(t, err, domain.ErrInvalidJwtFormat)
		})
	}
}

func TestVerify_MensajeNombraSegmento(t *testing.T) {
	_, err := jws.NewVerifier().Verify("abc.def.", publicKey(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firma")
}

// ── ExtractPayload ───────────────────────────────────────────────────────────

func TestExtractPayload_FirmaBasura(t *testing.T) {
	parts := strings.Split(sign(t, documento), ".")
	payload, err := jws.NewVerifier().ExtractPayload(parts[0] + "." + parts[1] + ".basura")
	require.NoError(t, err)
	assert.Equal(t, "01", payload.(map[string]any)["identificacion"].(map[string]any)["tipoDte"])
}

func TestExtractPayload_Relleno(t *testing.T) {
	for _, raw := range []string{`{"a":1}`, `{"a":12}`, `{"a":123}`} {
		t.Run(raw, func(t *testing.T) {
			for _, enc := range []string{
				base64.RawURLEncoding.EncodeToString([]byte(raw)),
				base64.URLEncoding.EncodeToString([]byte(raw)),
				base64.StdEncoding.EncodeToString([]byte(raw)),
			} {
				payload, err := jws.NewVerifier().ExtractPayload("h." + enc + ".s")
				require.NoError(t, err, enc)
				b, _ := json.Marshal(payload)
				assert.JSONEq(t, raw, string(b))
			}
		})
	}
}

func TestExtractPayload_Errores(t *testing.T) {
	v := jws.NewVerifier()

	_, err := v.ExtractPayload("a.b")
	assert.ErrorIs(t, err, domain.ErrInvalidJwtFormat)

	_, err = v.ExtractPayload("h.!!!.s")
	assert.ErrorIs(t, err, domain.ErrInvalidJwtFormat)

	_, err = v.ExtractPayload("h." + base64.RawURLEncoding.EncodeToString([]byte("no json")) + ".s")
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)
}

func TestParsePayloadMode(t *testing.T) {
	m, err := jws.ParsePayloadMode(" Pretty ")
	require.NoError(t, err)
	assert.Equal(t, jws.PayloadPretty, m)

	m, err = jws.ParsePayloadMode("")
	require.NoError(t, err)
	assert.Equal(t, jws.PayloadCompact, m)

	_, err = jws.ParsePayloadMode("xml")
	assert.Error(t, err)
}

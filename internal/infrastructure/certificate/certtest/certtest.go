// Package certtest genera llaves RSA y archivos de certificado XML (esquema MH y legacy)
// para las pruebas de los paquetes de firma.
package certtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/beevik/etree"
	"github.com/youmark/pkcs8"
)

// NIT del certificado de prueba habitual.
const (
	NIT      = "12345678901234"
	Password = "TestPassword123"
	KeyID    = "test_key_identifier"
)

var (
	keysOnce sync.Once
	keys     [2]*rsa.PrivateKey
	keysErr  error
)

func loadKeys(t testing.TB) {
	t.Helper()
	keysOnce.Do(func() {
		for i := range keys {
			keys[i], keysErr = rsa.GenerateKey(rand.Reader, 2048)
			if keysErr != nil {
				return
			}
		}
	})
	if keysErr != nil {
		t.Fatalf("certtest: generar llave RSA: %v", keysErr)
	}
}

// RSAKey llave RSA 2048 compartida entre pruebas (se genera una sola vez).
func RSAKey(t testing.TB) *rsa.PrivateKey {
	loadKeys(t)
	return keys[0]
}

// OtherRSAKey segunda llave, distinta de RSAKey.
func OtherRSAKey(t testing.TB) *rsa.PrivateKey {
	loadKeys(t)
	return keys[1]
}

// PKCS8DER DER PKCS#8 sin cifrar.
func PKCS8DER(t testing.TB, key any) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("certtest: PKCS#8: %v", err)
	}
	return der
}

// PKCS8PEM llave como bloque PRIVATE KEY.
func PKCS8PEM(t testing.TB, key any) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: PKCS8DER(t, key)})
}

// PKCS1PEM llave RSA como bloque RSA PRIVATE KEY.
func PKCS1PEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

// PKCS8Base64 DER PKCS#8 en base64 estándar, en líneas de 76 columnas como lo exporta el MH.
func PKCS8Base64(t testing.TB, key any) string {
	return wrap(base64.StdEncoding.EncodeToString(PKCS8DER(t, key)), 76)
}

// EncryptedPKCS8DER PKCS#8 cifrado con password (PBES2 por defecto).
func EncryptedPKCS8DER(t testing.TB, key any, password string) []byte {
	t.Helper()
	der, err := pkcs8.MarshalPrivateKey(key, []byte(password), nil)
	if err != nil {
		t.Fatalf("certtest: PKCS#8 cifrado: %v", err)
	}
	return der
}

// EncryptedPKCS8Base64 PKCS#8 cifrado en base64.
func EncryptedPKCS8Base64(t testing.TB, key any, password string) string {
	return base64.StdEncoding.EncodeToString(EncryptedPKCS8DER(t, key, password))
}

// PublicKeyPEM llave pública PKIX.
func PublicKeyPEM(t testing.TB, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("certtest: llave pública: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// PublicKeyBase64 DER PKIX en base64 (formato de publicKey/encodied).
func PublicKeyBase64(t testing.TB, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("certtest: llave pública: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

// HashPassword hex SHA-512, formato de passwordHash en certificados legacy.
func HashPassword(password string) string {
	sum := sha512.Sum512([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Ministry certificado con el esquema CertificadoMH.
type Ministry struct {
	NIT          string
	Active       string // texto de <activo>; "" omite el elemento
	OmitVerified bool
	KeyID        string
	PrivateKey   string
	PublicKey    string
}

// DefaultMinistry certificado MH activo con la llave compartida en DER base64.
func DefaultMinistry(t testing.TB) Ministry {
	return Ministry{
		NIT:        NIT,
		Active:     "true",
		KeyID:      KeyID,
		PrivateKey: PKCS8Base64(t, RSAKey(t)),
	}
}

// XML documento del certificado.
func (m Ministry) XML() []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("CertificadoMH")
	if m.NIT != "" {
		root.CreateElement("nit").SetText(m.NIT)
	}
	if m.Active != "" {
		root.CreateElement("activo").SetText(m.Active)
	}
	if !m.OmitVerified {
		root.CreateElement("verificado")
	}
	if m.PublicKey != "" {
		pub := root.CreateElement("publicKey")
		pub.CreateElement("encodied").SetText(m.PublicKey)
	}
	priv := root.CreateElement("privateKey")
	if m.KeyID != "" {
		priv.CreateElement("clave").SetText(m.KeyID)
	}
	priv.CreateElement("encodied").SetText(m.PrivateKey)
	return mustBytes(doc)
}

// Legacy certificado con el esquema plano (activo/verificado/privateKey/passwordHash).
type Legacy struct {
	Root         string
	Active       string
	Verified     string
	PrivateKey   string
	CDATA        bool
	PasswordHash string // "" omite el elemento
}

// DefaultLegacy certificado legacy válido con la llave PEM compartida y Password.
func DefaultLegacy(t testing.TB) Legacy {
	return Legacy{
		Active:       "true",
		Verified:     "true",
		PrivateKey:   string(PKCS8PEM(t, RSAKey(t))),
		PasswordHash: HashPassword(Password),
	}
}

// XML documento del certificado.
func (l Legacy) XML() []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	rootName := l.Root
	if rootName == "" {
		rootName = "certificado"
	}
	root := doc.CreateElement(rootName)
	root.CreateElement("activo").SetText(l.Active)
	root.CreateElement("verificado").SetText(l.Verified)
	key := root.CreateElement("privateKey")
	if l.CDATA {
		key.SetCData(l.PrivateKey)
	} else {
		key.SetText(l.PrivateKey)
	}
	if l.PasswordHash != "" {
		root.CreateElement("passwordHash").SetText(l.PasswordHash)
	}
	return mustBytes(doc)
}

// WriteCertificate escribe dir/<nit>.crt y devuelve la ruta.
func WriteCertificate(t testing.TB, dir, nit string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, nit+".crt")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("certtest: escribir certificado: %v", err)
	}
	return path
}

func mustBytes(doc *etree.Document) []byte {
	doc.Indent(2)
	b, err := doc.WriteToBytes()
	if err != nil {
		panic("certtest: serializar XML: " + err.Error())
	}
	return b
}

func wrap(s string, width int) string {
	var sb strings.Builder
	for len(s) > width {
		sb.WriteString(s[:width])
		sb.WriteByte('\n')
		s = s[width:]
	}
	sb.WriteString(s)
	return sb.String()
}

// Package certificate lee los archivos <NIT>.crt (XML) y obtiene de ellos las llaves de firma
// y de verificación.
package certificate

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/firmador-dte/internal/domain"
	"github.com/jhoicas/firmador-dte/internal/domain/entity"
)

const (
	ministryRoot = "CertificadoMH"

	tagNIT          = "nit"
	tagActive       = "activo"
	tagVerified     = "verificado"
	tagPrivateKey   = "privateKey"
	tagPublicKey    = "publicKey"
	tagEncoded      = "encodied"
	tagKeyID        = "clave"
	tagPasswordHash = "passwordHash"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Parser convierte el XML del certificado en un entity.CertificateRecord. Sin estado.
type Parser struct{}

// NewParser crea el parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse detecta el esquema (MH o legacy) y extrae los campos. No valida el estado del
// certificado; eso corresponde a certificate.Validator.
func (p *Parser) Parse(data []byte) (*entity.CertificateRecord, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(bytes.TrimPrefix(data, utf8BOM)); err != nil {
		return nil, domain.WrapError(domain.KindInvalidCertificateFormat, "certificado inválido: XML mal formado", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, domain.NewError(domain.KindInvalidCertificateFormat, "certificado inválido: el XML no tiene elemento raíz")
	}

	if root.Tag == ministryRoot {
		return parseMinistry(root)
	}
	if key := root.FindElement(".//" + tagPrivateKey); key != nil && len(key.ChildElements()) == 0 {
		return parseLegacy(root, key)
	}
	return nil, domain.NewError(domain.KindInvalidCertificateFormat,
		fmt.Sprintf("certificado inválido: estructura XML no reconocida (raíz %q)", root.Tag))
}

func parseMinistry(root *etree.Element) (*entity.CertificateRecord, error) {
	rec := &entity.CertificateRecord{
		Variant:  entity.SchemaMinistry,
		NIT:      textOf(root.FindElement(".//" + tagNIT)),
		Active:   textOf(root.FindElement(".//"+tagActive)) == "true",
		Verified: verifiedOf(root),
	}

	encoded := root.FindElement(".//" + tagPrivateKey + "/" + tagEncoded)
	if encoded == nil {
		return nil, domain.NewError(domain.KindMissingPrivateKey, "certificado inválido: falta privateKey/encodied")
	}
	rec.KeyMaterial = stripWhitespace(rawText(encoded))
	if len(rec.KeyMaterial) == 0 {
		return nil, domain.NewError(domain.KindMissingPrivateKey, "certificado inválido: falta la llave privada")
	}
	if pub := root.FindElement(".//" + tagPublicKey + "/" + tagEncoded); pub != nil {
		rec.PublicKeyMaterial = stripWhitespace(rawText(pub))
	}
	rec.KeyID = textOf(root.FindElement(".//" + tagPrivateKey + "/" + tagKeyID))
	rec.Fingerprint = Fingerprint(rec.NIT, rec.KeyID)
	return rec, nil
}

func parseLegacy(root, key *etree.Element) (*entity.CertificateRecord, error) {
	rec := &entity.CertificateRecord{
		Variant:  entity.SchemaLegacy,
		Active:   textOf(root.FindElement(".//"+tagActive)) == "true",
		Verified: verifiedOf(root),
	}
	rec.KeyMaterial = []byte(strings.TrimSpace(rawText(key)))
	if len(rec.KeyMaterial) == 0 {
		return nil, domain.NewError(domain.KindMissingPrivateKey, "certificado inválido: falta la llave privada")
	}
	if hash := root.FindElement(".//" + tagPasswordHash); hash != nil {
		v := textOf(hash)
		rec.PasswordHash = &v
	}
	return rec, nil
}

// Fingerprint identificador del certificado MH: hex SHA-512 de NIT + clave. Solo se usa
// para logs y auditoría, nunca como verificación.
func Fingerprint(nit, keyID string) string {
	if nit == "" && keyID == "" {
		return ""
	}
	sum := sha512.Sum512([]byte(nit + keyID))
	return hex.EncodeToString(sum[:])
}

func verifiedOf(root *etree.Element) entity.VerifiedTag {
	el := root.FindElement(".//" + tagVerified)
	if el == nil {
		return entity.VerifiedTag{}
	}
	return entity.VerifiedTag{Present: true, Value: textOf(el)}
}

func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return strings.TrimSpace(rawText(el))
}

// rawText concatena todos los nodos de texto hijos (CDATA incluido).
func rawText(el *etree.Element) string {
	var sb strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
		}
	}
	return sb.String()
}

func stripWhitespace(s string) []byte {
	return []byte(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}

// charsetReader decodifica los charsets de un byte que aparecen en certificados antiguos.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("charset no soportado: %s", label)
	}
}

// isXML descarta archivos que claramente no son XML (p. ej. un .p12 renombrado).
func isXML(data []byte) bool {
	trimmed := bytes.TrimLeftFunc(bytes.TrimPrefix(data, utf8BOM), unicode.IsSpace)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

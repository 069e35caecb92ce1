// Normalización del material de llave embebido en los certificados DTE: PEM tal cual,
// DER en base64 envuelto como PKCS#8, descifrado con contraseña y derivación de la llave pública.

package keys

import (
	"bytes"
	"crypto"
	"crypto/ed25519"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"unicode"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"

	"github.com/jhoicas/firmador-dte/internal/domain"
	"github.com/jhoicas/firmador-dte/pkg/logger"
	"github.com/jhoicas/firmador-dte/pkg/secret"
)

// Tipos de bloque PEM soportados.
const (
	BlockPrivateKey          = "PRIVATE KEY"
	BlockEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	BlockRSAPrivateKey       = "RSA PRIVATE KEY"
	BlockECPrivateKey        = "EC PRIVATE KEY"
	BlockOpenSSHPrivateKey   = "OPENSSH PRIVATE KEY"
	BlockPublicKey           = "PUBLIC KEY"
	BlockRSAPublicKey        = "RSA PUBLIC KEY"
	BlockCertificate         = "CERTIFICATE"
)

var (
	pemBegin = []byte("-----BEGIN")
	pemEnd   = []byte("-----END")

	errNotEncrypted = errors.New("el bloque no admite contraseña")
)

// KeyPair par normalizado. PrivateKeyPEM es opcional (nil en verificación).
type KeyPair struct {
	PrivateKeyPEM *secret.Secret
	PublicKeyPEM  string
}

// Destroy borra la llave privada.
func (p *KeyPair) Destroy() {
	if p == nil {
		return
	}
	p.PrivateKeyPEM.Destroy()
	p.PrivateKeyPEM = nil
}

// Normalizer convierte material de llave en llaves utilizables. No guarda estado entre llamadas.
type Normalizer struct {
	log *logger.Logger
}

// NewNormalizer crea el normalizador. log puede ser nil.
func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{log: logger.OrNop(log)}
}

// IsPEM indica si el material ya trae marcadores BEGIN/END.
func IsPEM(material []byte) bool {
	return bytes.Contains(material, pemBegin) && bytes.Contains(material, pemEnd)
}

// NormalizePEM devuelve el material como PEM. Si ya es PEM se devuelve sin modificar;
// si no, se interpreta como DER en base64 y se envuelve en un bloque PRIVATE KEY (64 columnas).
func (n *Normalizer) NormalizePEM(material []byte) (*secret.Secret, error) {
	if len(bytes.TrimSpace(material)) == 0 {
		return nil, domain.NewError(domain.KindInvalidKeyFormat, "material de llave vacío")
	}
	if IsPEM(material) {
		return secret.New(material), nil
	}

	compact := stripWhitespace(material)
	defer secret.Wipe(compact)

	der := make([]byte, base64.StdEncoding.DecodedLen(len(compact)))
	defer secret.Wipe(der)
	nb, err := base64.StdEncoding.Decode(der, compact)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidKeyFormat, "la llave no es PEM ni base64 válido", err)
	}

	out := pem.EncodeToMemory(&pem.Block{Type: BlockPrivateKey, Bytes: der[:nb]})
	defer secret.Wipe(out)
	return secret.New(out), nil
}

// ParsePrivateKey carga la llave privada PEM. Con contraseña intenta descifrar primero y,
// si falla, reintenta sin contraseña antes de devolver KeyDecryptionFailed.
func (n *Normalizer) ParsePrivateKey(pemData, password []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, domain.NewError(domain.KindInvalidKeyFormat, "no se encontró un bloque PEM de llave privada")
	}
	defer secret.Wipe(block.Bytes)

	if len(password) > 0 {
		key, decErr := decryptBlock(block, pemData, password)
		if decErr == nil {
			return key, nil
		}
		// Fallback sin contraseña. Una llave en claro con contraseña es lo habitual en
		// certificados Legacy y en DER sin cifrar: solo se avisa si el bloque venía cifrado.
		key, plainErr := parseBlock(block, pemData)
		if plainErr == nil {
			ev := n.log.Debug()
			if isEncrypted(block, decErr) {
				ev = n.log.Warn()
			}
			ev.Str("block", block.Type).
				AnErr("decrypt_error", decErr).
				Msg("la llave no se descifró con la contraseña; se cargó sin contraseña")
			return key, nil
		}
		return nil, domain.WrapError(domain.KindKeyDecryptionFailed, "no se pudo descifrar la llave privada", decErr)
	}

	key, err := parseBlock(block, pemData)
	if err == nil {
		return key, nil
	}
	if isEncrypted(block, err) {
		return nil, domain.WrapError(domain.KindKeyDecryptionFailed, "la llave privada está cifrada y no se suministró contraseña", err)
	}
	return nil, domain.WrapError(domain.KindInvalidKeyFormat, "formato de llave privada no soportado", err)
}

// Normalize ejecuta el flujo completo: PEM, carga (con contraseña opcional) y llave pública.
func (n *Normalizer) Normalize(material, password []byte) (*KeyPair, error) {
	pemSecret, err := n.NormalizePEM(material)
	if err != nil {
		return nil, err
	}
	key, err := n.ParsePrivateKey(pemSecret.Bytes(), password)
	if err != nil {
		pemSecret.Destroy()
		return nil, err
	}
	pub, err := PublicKeyPEM(key)
	if err != nil {
		pemSecret.Destroy()
		return nil, err
	}
	return &KeyPair{PrivateKeyPEM: pemSecret, PublicKeyPEM: pub}, nil
}

// PublicKeyPEM deriva la llave pública (PKIX, bloque PUBLIC KEY) de una llave privada.
func PublicKeyPEM(key crypto.PrivateKey) (string, error) {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return "", domain.NewError(domain.KindPublicKeyExtractionFailed, fmt.Sprintf("tipo de llave sin componentes públicos: %T", key))
	}
	pub := signer.Public()
	if pub == nil {
		return "", domain.NewError(domain.KindPublicKeyExtractionFailed, "la llave no expone llave pública")
	}
	return marshalPublicKey(pub)
}

// PublicKeyFromMaterial lee una llave pública embebida (PEM o DER en base64, PKIX o PKCS#1,
// o un certificado X.509) y la devuelve como PEM PKIX.
func PublicKeyFromMaterial(material []byte) (string, error) {
	var (
		der       []byte
		blockType string
	)
	if IsPEM(material) {
		block, _ := pem.Decode(material)
		if block == nil {
			return "", domain.NewError(domain.KindPublicKeyExtractionFailed, "bloque PEM de llave pública inválido")
		}
		der, blockType = block.Bytes, block.Type
	} else {
		decoded, err := base64.StdEncoding.DecodeString(string(stripWhitespace(material)))
		if err != nil {
			return "", domain.WrapError(domain.KindPublicKeyExtractionFailed, "llave pública no es base64 válido", err)
		}
		der = decoded
	}

	var pub crypto.PublicKey
	var err error
	switch blockType {
	case BlockRSAPublicKey:
		pub, err = x509.ParsePKCS1PublicKey(der)
	case BlockCertificate:
		var cert *x509.Certificate
		if cert, err = x509.ParseCertificate(der); err == nil {
			pub = cert.PublicKey
		}
	default:
		if pub, err = x509.ParsePKIXPublicKey(der); err != nil {
			if rsaPub, pkcs1Err := x509.ParsePKCS1PublicKey(der); pkcs1Err == nil {
				pub, err = rsaPub, nil
			}
		}
	}
	if err != nil {
		return "", domain.WrapError(domain.KindPublicKeyExtractionFailed, "no se pudo leer la llave pública", err)
	}
	return marshalPublicKey(pub)
}

func marshalPublicKey(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", domain.WrapError(domain.KindPublicKeyExtractionFailed, "no se pudo serializar la llave pública", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: BlockPublicKey, Bytes: der})), nil
}

// decryptBlock descifra según el tipo de bloque: OpenSSH, PEM legacy (RFC 1423) o PKCS#8 cifrado.
func decryptBlock(block *pem.Block, pemData, password []byte) (crypto.Signer, error) {
	switch {
	case block.Type == BlockOpenSSHPrivateKey:
		raw, err := ssh.ParseRawPrivateKeyWithPassphrase(pemData, password)
		if err != nil {
			return nil, err
		}
		return asSigner(raw)
	//nolint:staticcheck // x509.IsEncryptedPEMBlock está deprecado pero es necesario para PEM cifrado legacy
	case x509.IsEncryptedPEMBlock(block):
		//nolint:staticcheck // idem x509.DecryptPEMBlock
		der, err := x509.DecryptPEMBlock(block, password)
		if err != nil {
			return nil, err
		}
		defer secret.Wipe(der)
		return parseDER(block.Type, der)
	case block.Type == BlockPrivateKey || block.Type == BlockEncryptedPrivateKey:
		raw, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, password)
		if err != nil {
			return nil, err
		}
		return asSigner(raw)
	default:
		return nil, errNotEncrypted
	}
}

// parseBlock carga una llave sin cifrar (PKCS#8, PKCS#1, EC u OpenSSH).
func parseBlock(block *pem.Block, pemData []byte) (crypto.Signer, error) {
	if block.Type == BlockOpenSSHPrivateKey {
		raw, err := ssh.ParseRawPrivateKey(pemData)
		if err != nil {
			return nil, fmt.Errorf("llave OpenSSH: %w", err)
		}
		return asSigner(raw)
	}
	return parseDER(block.Type, block.Bytes)
}

func parseDER(blockType string, der []byte) (crypto.Signer, error) {
	switch blockType {
	case BlockRSAPrivateKey:
		return asSigner(x509.ParsePKCS1PrivateKey(der))
	case BlockECPrivateKey:
		return asSigner(x509.ParseECPrivateKey(der))
	case BlockPrivateKey, BlockEncryptedPrivateKey:
		if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
			return asSigner(key, nil)
		}
		// Algunas herramientas etiquetan PKCS#1 como "PRIVATE KEY".
		if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
			return key, nil
		}
		if key, err := x509.ParseECPrivateKey(der); err == nil {
			return key, nil
		}
		return nil, errors.New("bloque PRIVATE KEY en formato desconocido")
	default:
		return nil, fmt.Errorf("tipo de bloque PEM no soportado %q", blockType)
	}
}

func asSigner(key any, err ...error) (crypto.Signer, error) {
	if len(err) > 0 && err[0] != nil {
		return nil, err[0]
	}
	if ptr, ok := key.(*ed25519.PrivateKey); ok {
		key = *ptr
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("tipo de llave no soportado: %T", key)
	}
	return signer, nil
}

// isEncrypted detecta llaves cifradas para distinguir "falta contraseña" de "formato inválido".
func isEncrypted(block *pem.Block, parseErr error) bool {
	var missing *ssh.PassphraseMissingError
	if errors.As(parseErr, &missing) {
		return true
	}
	//nolint:staticcheck // PEM cifrado legacy
	if block.Type == BlockEncryptedPrivateKey || x509.IsEncryptedPEMBlock(block) {
		return true
	}
	return block.Type == BlockPrivateKey && looksLikeEncryptedPKCS8(block.Bytes)
}

// encryptedPrivateKeyInfo estructura ASN.1 de PKCS#8 cifrado (RFC 5208 §6).
type encryptedPrivateKeyInfo struct {
	Algorithm     pkix.AlgorithmIdentifier
	EncryptedData []byte
}

func looksLikeEncryptedPKCS8(der []byte) bool {
	var info encryptedPrivateKeyInfo
	rest, err := asn1.Unmarshal(der, &info)
	return err == nil && len(rest) == 0 && len(info.EncryptedData) > 0
}

func stripWhitespace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if !unicode.IsSpace(rune(c)) {
			out = append(out, c)
		}
	}
	return out
}

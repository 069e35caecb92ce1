package entity

import "github.com/jhoicas/firmador-dte/pkg/secret"

// SchemaVariant identifica el esquema XML del que proviene un certificado.
type SchemaVariant int

const (
	// SchemaLegacy formato interno plano: activo, verificado, privateKey, passwordHash.
	SchemaLegacy SchemaVariant = iota + 1
	// SchemaMinistry formato emitido por el Ministerio de Hacienda (raíz CertificadoMH).
	SchemaMinistry
)

// String nombre legible del esquema (logs, diagnóstico).
func (v SchemaVariant) String() string {
	switch v {
	case SchemaLegacy:
		return "legacy"
	case SchemaMinistry:
		return "mh"
	default:
		return "desconocido"
	}
}

// VerifiedTag guarda la información cruda de <verificado>. Su interpretación depende del esquema:
// Legacy exige Value == "true"; MH solo exige que la etiqueta exista (vacía cuenta).
type VerifiedTag struct {
	Present bool
	Value   string
}

// CertificateRecord representa un certificado ya parseado. Se construye por operación y
// nunca se cachea; Destroy borra el material de llave.
type CertificateRecord struct {
	Variant           SchemaVariant
	NIT               string // <nit> si el archivo lo trae (MH)
	Active            bool   // <activo> == "true"
	Verified          VerifiedTag
	KeyMaterial       []byte  // PEM o DER en base64; nunca vacío tras un parse exitoso
	PublicKeyMaterial []byte  // MH: publicKey/encodied (opcional)
	PasswordHash      *string // solo Legacy: SHA-512 hex de la contraseña
	KeyID             string  // MH: privateKey/clave
	Fingerprint       string  // MH: SHA-512(NIT + KeyID); solo identificación, nunca se compara
}

// HasPublicKey indica si el certificado trae la llave pública embebida.
func (r *CertificateRecord) HasPublicKey() bool {
	return r != nil && len(r.PublicKeyMaterial) > 0
}

// Destroy pone a cero el material de llave.
func (r *CertificateRecord) Destroy() {
	if r == nil {
		return
	}
	secret.Wipe(r.KeyMaterial)
	r.KeyMaterial = nil
}

// SigningKey llave privada PEM lista para el firmador. Si el certificado trae la llave cifrada,
// PEM sigue cifrado y el descifrado ocurre al firmar.
type SigningKey struct {
	PEM         *secret.Secret
	Variant     SchemaVariant
	Fingerprint string
}

// Destroy borra la llave.
func (k *SigningKey) Destroy() {
	if k == nil {
		return
	}
	k.PEM.Destroy()
	k.PEM = nil
}

package certificate

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/firmador-dte/internal/domain"
	certdomain "github.com/jhoicas/firmador-dte/internal/domain/certificate"
	"github.com/jhoicas/firmador-dte/internal/domain/entity"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/keys"
	"github.com/jhoicas/firmador-dte/pkg/logger"
	"github.com/jhoicas/firmador-dte/pkg/secret"
)

// Extension de los archivos de certificado: <directorio>/<NIT>.crt
const Extension = ".crt"

// Loader localiza, parsea y valida certificados. Cada llamada lee el archivo de nuevo:
// no hay caché de llaves.
type Loader struct {
	dir        string
	parser     *Parser
	validator  *certdomain.Validator
	normalizer *keys.Normalizer
	log        *logger.Logger
}

// NewLoader crea el cargador para dir. normalizer y log pueden ser nil.
func NewLoader(dir string, normalizer *keys.Normalizer, log *logger.Logger) *Loader {
	log = logger.OrNop(log).Named("certificate")
	if normalizer == nil {
		normalizer = keys.NewNormalizer(log)
	}
	return &Loader{
		dir:        dir,
		parser:     NewParser(),
		validator:  certdomain.NewValidator(),
		normalizer: normalizer,
		log:        log,
	}
}

// Path ruta del certificado para nit.
func (l *Loader) Path(nit string) string {
	return filepath.Join(l.dir, nit+Extension)
}

// LoadSigningKey parsea y valida el certificado y devuelve la llave privada en PEM.
// La contraseña se usa para la validación legacy (passwordHash); en certificados MH se
// comprueba al descifrar la llave durante la firma.
func (l *Loader) LoadSigningKey(nit string, password *secret.Secret) (*entity.SigningKey, error) {
	rec, err := l.read(nit)
	if err != nil {
		return nil, err
	}
	defer rec.Destroy()

	if err := l.validator.Validate(rec, password); err != nil {
		l.log.Info().Str("nit", nit).Str("schema", rec.Variant.String()).Err(err).Msg("certificado rechazado")
		return nil, err
	}

	pemKey, err := l.normalizer.NormalizePEM(rec.KeyMaterial)
	if err != nil {
		return nil, err
	}
	l.log.Debug().Str("nit", nit).Str("schema", rec.Variant.String()).Str("key_id", rec.KeyID).Msg("llave de firma cargada")
	return &entity.SigningKey{PEM: pemKey, Variant: rec.Variant, Fingerprint: rec.Fingerprint}, nil
}

// LoadVerificationKey devuelve la llave pública PEM del certificado. No valida el estado del
// certificado (activo/verificado): se verifican firmas de documentos ya emitidos.
func (l *Loader) LoadVerificationKey(nit string) (string, error) {
	rec, err := l.read(nit)
	if err != nil {
		return "", err
	}
	defer rec.Destroy()

	if rec.HasPublicKey() {
		pub, err := keys.PublicKeyFromMaterial(rec.PublicKeyMaterial)
		if err == nil {
			return pub, nil
		}
		l.log.Warn().Str("nit", nit).Err(err).Msg("publicKey embebida ilegible; se deriva de la llave privada")
	}

	pair, err := l.normalizer.Normalize(rec.KeyMaterial, nil)
	if err != nil {
		return "", err
	}
	defer pair.Destroy()
	return pair.PublicKeyPEM, nil
}

// Report resultado de Inspect. ValidationErr y KeyErr describen problemas sin abortar el diagnóstico.
type Report struct {
	NIT           string
	Path          string
	Variant       entity.SchemaVariant
	Active        bool
	Verified      bool
	HasPublicKey  bool
	KeyID         string
	Fingerprint   string
	KeyEncoding   string // pem | base64-der
	ValidationErr error
	KeyErr        error
	PublicKeyPEM  string
}

// OK indica si el certificado es utilizable para firmar con la contraseña dada.
func (r *Report) OK() bool {
	return r.ValidationErr == nil && r.KeyErr == nil
}

// Inspect diagnostica un certificado: esquema, estado, validación y descifrado de la llave.
// Solo devuelve error si el archivo no se puede leer o parsear.
func (l *Loader) Inspect(nit string, password *secret.Secret) (*Report, error) {
	rec, err := l.read(nit)
	if err != nil {
		return nil, err
	}
	defer rec.Destroy()

	rep := &Report{
		NIT:          nit,
		Path:         l.Path(nit),
		Variant:      rec.Variant,
		Active:       rec.Active,
		HasPublicKey: rec.HasPublicKey(),
		KeyID:        rec.KeyID,
		Fingerprint:  rec.Fingerprint,
		KeyEncoding:  "base64-der",
	}
	rep.Verified = rec.Verified.Present
	if rec.Variant == entity.SchemaLegacy {
		rep.Verified = rec.Verified.Value == "true"
	}
	if keys.IsPEM(rec.KeyMaterial) {
		rep.KeyEncoding = "pem"
	}
	rep.ValidationErr = l.validator.Validate(rec, password)

	pair, err := l.normalizer.Normalize(rec.KeyMaterial, password.Bytes())
	if err != nil {
		rep.KeyErr = err
		return rep, nil
	}
	defer pair.Destroy()
	rep.PublicKeyPEM = pair.PublicKeyPEM
	return rep, nil
}

func (l *Loader) read(nit string) (*entity.CertificateRecord, error) {
	if nit == "" || strings.IndexFunc(nit, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return nil, domain.NewError(domain.KindValidation, "el NIT debe contener solo dígitos", "nit: "+nit)
	}

	data, err := os.ReadFile(l.Path(nit))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.CertificateNotFound(nit)
		}
		return nil, domain.WrapError(domain.KindInvalidCertificateFormat, "certificado inválido: no se pudo leer el archivo", err)
	}
	if !isXML(data) {
		return nil, domain.NewError(domain.KindInvalidCertificateFormat, "certificado inválido: el archivo no es XML")
	}

	rec, err := l.parser.Parse(data)
	secret.Wipe(data)
	if err != nil {
		return nil, err
	}
	if rec.NIT == "" {
		rec.NIT = nit
		if rec.Variant == entity.SchemaMinistry {
			rec.Fingerprint = Fingerprint(nit, rec.KeyID)
		}
	} else if rec.NIT != nit {
		l.log.Warn().Str("nit", nit).Str("nit_certificado", rec.NIT).Msg("el NIT del certificado no coincide con el nombre del archivo")
	}
	return rec, nil
}

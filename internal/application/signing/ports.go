package signing

import (
	"github.com/jhoicas/firmador-dte/internal/domain/entity"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/jws"
	"github.com/jhoicas/firmador-dte/pkg/secret"
)

// KeyLoader obtiene llaves desde el almacén de certificados (certificate.Loader).
type KeyLoader interface {
	LoadSigningKey(nit string, password *secret.Secret) (*entity.SigningKey, error)
	LoadVerificationKey(nit string) (string, error)
}

// DocumentSigner produce el JWS (jws.Signer).
type DocumentSigner interface {
	Sign(document any, privateKeyPEM, password []byte) (string, error)
}

// TokenVerifier verifica y decodifica JWS (jws.Verifier).
type TokenVerifier interface {
	Verify(token, publicKeyPEM string) (*jws.VerificationResult, error)
	ExtractPayload(token string) (any, error)
}

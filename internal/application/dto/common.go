package dto

// Límites de página del historial de firmas.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest paginación del historial (?limit=&offset=).
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// DefaultPage normaliza la página: limit 0 o negativo toma DefaultPageLimit, limit mayor a
// MaxPageLimit se recorta y offset negativo vuelve a 0.
func (p *PageRequest) DefaultPage() {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// Códigos de rechazo de la autenticación de clientes. Conviven con los COD_8xx del firmador.
const (
	CodeUnauthorized = "COD_401"
	CodeForbidden    = "COD_403"
)

// Motivos de rechazo en ErrorResponse.Code.
const (
	ReasonMissingToken = "MISSING_TOKEN"
	ReasonInvalidToken = "INVALID_TOKEN"
	ReasonUnauthorized = "UNAUTHORIZED"
	ReasonForbidden    = "FORBIDDEN"
)

// ErrorResponse cuerpo de los rechazos de autenticación. Comparte success/message/errorCode
// con Result para que el cliente lea ambos igual; Code detalla el motivo.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
	Code      string `json:"code"`
}

// Unauthorized rechazo 401 (token ausente, inválido o expirado).
func Unauthorized(reason, message string) ErrorResponse {
	return ErrorResponse{Message: message, ErrorCode: CodeUnauthorized, Code: reason}
}

// Forbidden rechazo 403 (el token no concede el scope).
func Forbidden(message string) ErrorResponse {
	return ErrorResponse{Message: message, ErrorCode: CodeForbidden, Code: ReasonForbidden}
}

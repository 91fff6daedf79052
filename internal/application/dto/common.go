package dto

// Topes de paginación de los listados HTTP.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Códigos de ErrorResponse.
const (
	CodeInvalidBody       = "INVALID_BODY"
	CodeValidation        = "VALIDATION"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeDuplicate         = "DUPLICATE"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL"
)

// PageRequest ventana limit/offset de un listado.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=0,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// ClampPage arma la ventana pedida por un cliente: limit fuera de rango cae en
// DefaultPageLimit o MaxPageLimit y el offset nunca es negativo.
func ClampPage(limit, offset int) PageRequest {
	p := PageRequest{Limit: limit, Offset: offset}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	p.WithDefaults()
	return p
}

// WithDefaults completa limit en cero y corrige offset negativo. No aplica el tope
// para que los procesos internos (seed_catalog) puedan pedir ventanas grandes.
func (p *PageRequest) WithDefaults() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Response metadatos de la página servida con el total sin paginar.
func (p PageRequest) Response(total int) PageResponse {
	return PageResponse{Limit: p.Limit, Offset: p.Offset, Total: total}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ErrorResponse cuerpo de error HTTP. Details lleva los mensajes por campo en errores de validación.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

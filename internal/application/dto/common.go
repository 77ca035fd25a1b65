package dto

import "github.com/jhoicas/Comprobantes-api/internal/domain"

// PageRequest paginación para listados.
type PageRequest struct {
	Limit int `query:"limit"`
}

// DefaultPage aplica valores por defecto y el tope de 100.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code      string                  `json:"code"`
	Message   string                  `json:"message"`
	Retryable bool                    `json:"retryable,omitempty"`
	Errors    []domain.AuthorityError `json:"errors,omitempty"` // errores del SRI (rechazos)
}

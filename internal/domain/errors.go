package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrInvalidTransition   = errors.New("transición de estado no permitida")
	ErrPreconditionFailed  = errors.New("precondición fiscal no cumplida")
	ErrAuthorityRejected   = errors.New("comprobante rechazado por el SRI")
	ErrContention          = errors.New("contención al asignar secuencial")
	ErrUpstreamUnavailable = errors.New("web service del SRI no disponible")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrUnauthorized        = errors.New("no autorizado")
)

// AuthorityError es un error individual devuelto por el SRI (o por la capa de integración).
type AuthorityError struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	AdditionalInfo string `json:"additional_info,omitempty"`
}

// FiscalError es el resultado tipado de las operaciones fiscales.
// Kind es uno de los sentinels de arriba; errors.Is(err, domain.ErrNotFound) funciona sobre él.
type FiscalError struct {
	Kind    error
	Message string
	Errors  []AuthorityError // solo para rechazos y fallas de envío
	Cause   error
}

func (e *FiscalError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, ae := range e.Errors {
		fmt.Fprintf(&b, " [%s] %s", ae.Code, ae.Message)
		if ae.AdditionalInfo != "" {
			fmt.Fprintf(&b, " (%s)", ae.AdditionalInfo)
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Is permite errors.Is contra el Kind.
func (e *FiscalError) Is(target error) bool { return e.Kind == target }

// Unwrap expone la causa técnica (si existe).
func (e *FiscalError) Unwrap() error { return e.Cause }

// NewError construye un FiscalError con mensaje formateado.
func NewError(kind error, format string, args ...any) *FiscalError {
	return &FiscalError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// TransitionError construye el error de transición inválida nombrando origen y destino.
func TransitionError(from, to string) *FiscalError {
	return &FiscalError{
		Kind:    ErrInvalidTransition,
		Message: fmt.Sprintf("de %s a %s", from, to),
	}
}

// RejectedError construye el error de rechazo definitivo con la lista completa de errores.
func RejectedError(message string, errs []AuthorityError) *FiscalError {
	return &FiscalError{Kind: ErrAuthorityRejected, Message: message, Errors: errs}
}

// UnavailableError envuelve una falla de transporte hacia el SRI.
func UnavailableError(cause error) *FiscalError {
	return &FiscalError{Kind: ErrUpstreamUnavailable, Cause: cause}
}

// AuthorityErrorsOf devuelve la lista de errores del SRI embebida en err (si la hay).
func AuthorityErrorsOf(err error) []AuthorityError {
	var fe *FiscalError
	if errors.As(err, &fe) {
		return fe.Errors
	}
	return nil
}

// IsRetryable indica si el llamador puede reintentar la operación más tarde.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention) ||
		errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrConflict)
}

// IsBusiness indica si el error es una violación de regla de negocio esperada
// (no debe registrarse como error de sistema).
func IsBusiness(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrPreconditionFailed) ||
		errors.Is(err, ErrAuthorityRejected)
}

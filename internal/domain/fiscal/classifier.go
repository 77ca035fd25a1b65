package fiscal

import (
	"strings"
	"time"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
)

// Códigos producidos por la propia capa de integración (no por el SRI).
// Nunca representan un rechazo fiscal.
const (
	CodeParseError      = "PARSE_ERROR"
	CodeHTTPError       = "HTTP_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeConnectionError = "CONNECTION_ERROR"
	CodeEmptyResponse   = "EMPTY_RESPONSE"
	CodeSOAPFault       = "SOAP_FAULT"

	// CodeNoMessages identifica un NO AUTORIZADO / DEVUELTA sin mensajes adjuntos.
	CodeNoMessages = "SIN_MENSAJES"
)

var transientCodes = map[string]struct{}{
	CodeParseError:      {},
	CodeHTTPError:       {},
	CodeTimeout:         {},
	CodeConnectionError: {},
	CodeEmptyResponse:   {},
	CodeSOAPFault:       {},
}

// Frases del SRI que indican que el comprobante sigue en cola.
var inProgressPhrases = map[string]struct{}{
	"EN PROCESAMIENTO": {},
	"EN PROCESO":       {},
	"PPR":              {},
	"RECIBIDA":         {},
}

// IsTransientCode indica si el código pertenece a la capa de integración.
func IsTransientCode(code string) bool {
	_, ok := transientCodes[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// IsInProgressPhrase indica si la frase de estado del SRI significa "aún procesando".
func IsInProgressPhrase(phrase string) bool {
	_, ok := inProgressPhrases[strings.ToUpper(strings.TrimSpace(phrase))]
	return ok
}

// SubmitResponse respuesta de RecepcionComprobantes.
type SubmitResponse struct {
	Received     bool
	StatusPhrase string // RECIBIDA | DEVUELTA
	Errors       []domain.AuthorityError
}

// AuthorizationResponse respuesta de AutorizacionComprobantes.
type AuthorizationResponse struct {
	Authorized        bool
	StatusPhrase      string // AUTORIZADO | NO AUTORIZADO | EN PROCESAMIENTO
	AuthorizationCode string
	AuthorizationDate *time.Time
	Errors            []domain.AuthorityError
}

// Verdict resultado de clasificar una respuesta del SRI.
type Verdict string

const (
	VerdictAuthorized   Verdict = "Authorized"
	VerdictStillPending Verdict = "StillPending"
	VerdictRejected     Verdict = "Rejected"
)

// Classification veredicto más los errores a persistir (solo cuando es Rejected).
type Classification struct {
	Verdict   Verdict
	Operation string
	Errors    []domain.AuthorityError
}

// Classify interpreta una respuesta de autorización.
//
//  1. Autorizado ⇒ Authorized, sin importar códigos informativos.
//  2. Frase "en proceso" sin errores ⇒ StillPending.
//  3. Con errores: si todos son transitorios ⇒ StillPending; si al menos uno
//     es del SRI ⇒ Rejected y se devuelven todos para persistir.
//
// Sin autorización, sin errores y sin frase conocida: vacío ⇒ StillPending;
// cualquier otra frase (NO AUTORIZADO, DEVUELTA) ⇒ Rejected con un registro sintético.
func Classify(operation string, resp AuthorizationResponse) Classification {
	if resp.Authorized {
		return Classification{Verdict: VerdictAuthorized, Operation: operation}
	}
	if len(resp.Errors) == 0 {
		phrase := strings.TrimSpace(resp.StatusPhrase)
		if phrase == "" || IsInProgressPhrase(phrase) {
			return Classification{Verdict: VerdictStillPending, Operation: operation}
		}
		return Classification{
			Verdict:   VerdictRejected,
			Operation: operation,
			Errors: []domain.AuthorityError{{
				Code:    CodeNoMessages,
				Message: "estado " + strings.ToUpper(phrase) + " sin mensajes del SRI",
			}},
		}
	}
	if AllTransient(resp.Errors) {
		return Classification{Verdict: VerdictStillPending, Operation: operation}
	}
	errs := make([]domain.AuthorityError, len(resp.Errors))
	copy(errs, resp.Errors)
	return Classification{Verdict: VerdictRejected, Operation: operation, Errors: errs}
}

// AllTransient indica si todos los errores provienen de la capa de integración.
// Una lista vacía no es "toda transitoria".
func AllTransient(errs []domain.AuthorityError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if !IsTransientCode(e.Code) {
			return false
		}
	}
	return true
}

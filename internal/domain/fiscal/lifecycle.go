// Package fiscal contiene las reglas de dominio del comprobante electrónico:
// las tablas de transición de estado (comercial y fiscal) y la clasificación
// de respuestas del SRI. No depende de infraestructura.
package fiscal

import (
	"time"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// commercialTransitions: ciclo comercial, único alcanzable desde ChangeStatus.
var commercialTransitions = map[entity.DocumentStatus][]entity.DocumentStatus{
	entity.StatusDraft:   {entity.StatusSent, entity.StatusCancelled},
	entity.StatusSent:    {entity.StatusPaid, entity.StatusOverdue, entity.StatusCancelled},
	entity.StatusOverdue: {entity.StatusPaid, entity.StatusCancelled},
}

// fiscalTransitions: ciclo fiscal, solo lo recorre el pipeline de autorización.
var fiscalTransitions = map[entity.DocumentStatus][]entity.DocumentStatus{
	entity.StatusDraft:                {entity.StatusPendingAuthorization},
	entity.StatusPendingAuthorization: {entity.StatusAuthorized, entity.StatusRejected},
}

// CanChangeCommercial indica si (from, to) está en la tabla comercial.
func CanChangeCommercial(from, to entity.DocumentStatus) bool {
	return allowed(commercialTransitions, from, to)
}

// CanTransitionFiscal indica si (from, to) está en la tabla fiscal.
func CanTransitionFiscal(from, to entity.DocumentStatus) bool {
	return allowed(fiscalTransitions, from, to)
}

func allowed(table map[entity.DocumentStatus][]entity.DocumentStatus, from, to entity.DocumentStatus) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsFiscalOnly indica si el estado solo es alcanzable por el pipeline.
func IsFiscalOnly(s entity.DocumentStatus) bool {
	switch s {
	case entity.StatusPendingAuthorization, entity.StatusAuthorized, entity.StatusRejected:
		return true
	}
	return false
}

// ChangeStatus aplica una transición del ciclo comercial y devuelve una copia del documento.
// El original no se modifica nunca; ante una transición ilegal se devuelve InvalidTransition.
func ChangeStatus(doc *entity.FiscalDocument, to entity.DocumentStatus, now time.Time) (*entity.FiscalDocument, error) {
	if IsFiscalOnly(to) || !CanChangeCommercial(doc.Status, to) {
		return nil, domain.TransitionError(string(doc.Status), string(to))
	}
	next := doc.Clone()
	next.Status = to
	if to == entity.StatusPaid && next.PaidAt == nil {
		paidAt := now
		next.PaidAt = &paidAt
	}
	next.UpdatedAt = now
	return next, nil
}

// MarkPendingAuthorization mueve un Draft a PendingAuthorization con su clave de acceso
// y la referencia al XML firmado.
func MarkPendingAuthorization(doc *entity.FiscalDocument, accessKey, artifactRef string, now time.Time) (*entity.FiscalDocument, error) {
	if !CanTransitionFiscal(doc.Status, entity.StatusPendingAuthorization) {
		return nil, domain.TransitionError(string(doc.Status), string(entity.StatusPendingAuthorization))
	}
	if accessKey == "" || artifactRef == "" {
		return nil, domain.NewError(domain.ErrPreconditionFailed, "clave de acceso y XML firmado son obligatorios")
	}
	next := doc.Clone()
	next.Status = entity.StatusPendingAuthorization
	next.AccessKey = accessKey
	next.SignedArtifactRef = artifactRef
	next.UpdatedAt = now
	return next, nil
}

// MarkSubmitted registra la recepción del SRI; el estado sigue en PendingAuthorization.
func MarkSubmitted(doc *entity.FiscalDocument, now time.Time) (*entity.FiscalDocument, error) {
	if doc.Status != entity.StatusPendingAuthorization {
		return nil, domain.NewError(domain.ErrPreconditionFailed, "el documento debe estar en PendingAuthorization para enviarse")
	}
	next := doc.Clone()
	submittedAt := now
	next.SubmittedAt = &submittedAt
	next.UpdatedAt = now
	return next, nil
}

// MarkAuthorized aplica PendingAuthorization → Authorized con número y fecha de autorización.
// Si el SRI no devuelve fecha se usa now.
func MarkAuthorized(doc *entity.FiscalDocument, authorizationCode string, authorizedAt *time.Time, now time.Time) (*entity.FiscalDocument, error) {
	if !CanTransitionFiscal(doc.Status, entity.StatusAuthorized) {
		return nil, domain.TransitionError(string(doc.Status), string(entity.StatusAuthorized))
	}
	next := doc.Clone()
	next.Status = entity.StatusAuthorized
	next.AuthorizationCode = authorizationCode
	if next.AuthorizationCode == "" {
		// En el esquema offline el número de autorización es la misma clave de acceso.
		next.AuthorizationCode = doc.AccessKey
	}
	at := now
	if authorizedAt != nil && !authorizedAt.IsZero() {
		at = *authorizedAt
	}
	next.AuthorizedAt = &at
	next.UpdatedAt = now
	return next, nil
}

// MarkRejected aplica PendingAuthorization → Rejected.
func MarkRejected(doc *entity.FiscalDocument, now time.Time) (*entity.FiscalDocument, error) {
	if !CanTransitionFiscal(doc.Status, entity.StatusRejected) {
		return nil, domain.TransitionError(string(doc.Status), string(entity.StatusRejected))
	}
	next := doc.Clone()
	next.Status = entity.StatusRejected
	next.UpdatedAt = now
	return next, nil
}

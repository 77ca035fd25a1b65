package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/fiscal"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// AuthorizationPipeline orquesta el envío y la consulta de autorización ante el SRI:
//
//	load → validar → llamada SRI → clasificar → mutar → persistir
//
// Es síncrono y lo dispara el llamador (API, CLI); no hay goroutines propias ni
// temporizadores. El reintento de las fallas transitorias también es del llamador.
type AuthorizationPipeline struct {
	txRunner  FiscalTxRunner
	docRepo   repository.FiscalDocumentRepository
	errorRepo repository.AuthorityErrorRepository
	artifacts ArtifactStore
	client    AuthorityClient
	now       func() time.Time
	log       zerolog.Logger
}

// AuthorizationResult resultado de CheckAuthorization que no es un rechazo.
type AuthorizationResult struct {
	Verdict  fiscal.Verdict // Authorized | StillPending
	Document *entity.FiscalDocument
}

// NewAuthorizationPipeline construye el pipeline.
func NewAuthorizationPipeline(
	txRunner FiscalTxRunner,
	docRepo repository.FiscalDocumentRepository,
	errorRepo repository.AuthorityErrorRepository,
	artifacts ArtifactStore,
	client AuthorityClient,
	log zerolog.Logger,
) *AuthorizationPipeline {
	return &AuthorizationPipeline{
		txRunner:  txRunner,
		docRepo:   docRepo,
		errorRepo: errorRepo,
		artifacts: artifacts,
		client:    client,
		now:       time.Now,
		log:       log,
	}
}

// WithClock reemplaza el reloj (tests).
func (p *AuthorizationPipeline) WithClock(now func() time.Time) *AuthorizationPipeline {
	p.now = now
	return p
}

// Submit envía el XML firmado a RecepcionComprobantes.
//
// Retorna:
//   - el documento con SubmittedAt sellado si el SRI lo recibió (sigue en PendingAuthorization).
//   - domain.ErrNotFound            si no existe o es de otro tenant.
//   - domain.ErrAuthorityRejected   si ya estaba Rejected (con los errores previos, sin llamar al SRI)
//     o si el SRI devolvió el comprobante. En ese caso no se persiste nada.
//   - domain.ErrPreconditionFailed  si no está en PendingAuthorization o falta el XML firmado.
//   - domain.ErrUpstreamUnavailable si el SRI no fue alcanzable o solo hubo errores transitorios.
func (p *AuthorizationPipeline) Submit(ctx context.Context, tenantID, documentID string) (*entity.FiscalDocument, error) {
	log := p.log.With().Str("tenant_id", tenantID).Str("document_id", documentID).Str("operation", entity.OperationSubmit).Logger()

	// ── 1. Cargar documento ───────────────────────────────────────────────────
	doc, err := loadDocument(ctx, p.docRepo, tenantID, documentID)
	if err != nil {
		return nil, err
	}

	// ── 2. Rechazado: devolver los errores registrados sin contactar al SRI ───
	if doc.Status == entity.StatusRejected {
		records, err := p.errorRepo.ListByDocument(ctx, tenantID, documentID)
		if err != nil {
			return nil, fmt.Errorf("submit: errores previos: %w", err)
		}
		log.Debug().Int("errors", len(records)).Msg("reenvío de documento rechazado bloqueado")
		return nil, domain.RejectedError("el documento fue rechazado por el SRI", recordsToErrors(records))
	}

	// ── 3. Estado y XML firmado ───────────────────────────────────────────────
	if doc.Status != entity.StatusPendingAuthorization {
		return nil, domain.NewError(domain.ErrPreconditionFailed,
			"el documento debe estar en PendingAuthorization para enviarse (estado actual %s)", doc.Status)
	}
	if doc.SignedArtifactRef == "" {
		return nil, domain.NewError(domain.ErrPreconditionFailed, "el documento no tiene XML firmado")
	}
	exists, err := p.artifacts.Exists(ctx, doc.SignedArtifactRef)
	if err != nil {
		return nil, fmt.Errorf("submit: verificar XML firmado: %w", err)
	}
	if !exists {
		return nil, domain.NewError(domain.ErrPreconditionFailed, "el XML firmado %q no existe", doc.SignedArtifactRef)
	}
	signed, err := p.artifacts.Read(ctx, doc.SignedArtifactRef)
	if err != nil {
		return nil, fmt.Errorf("submit: leer XML firmado: %w", err)
	}

	// ── 4. Envío ──────────────────────────────────────────────────────────────
	resp, err := p.client.Submit(ctx, signed)
	if err != nil {
		log.Warn().Err(err).Msg("SRI no disponible en recepción")
		return nil, domain.UnavailableError(err)
	}
	if failure := submitFailure(resp); failure != nil {
		log.Info().Str("status_phrase", resp.StatusPhrase).Int("errors", len(resp.Errors)).Msg("recepción no aceptada")
		return nil, failure
	}

	// ── 5. Persistir recepción ────────────────────────────────────────────────
	next, err := fiscal.MarkSubmitted(doc, p.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := p.docRepo.Update(ctx, next); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("submit: guardar documento: %w", err)
		}
		stored, lerr := loadDocument(ctx, p.docRepo, tenantID, documentID)
		if lerr != nil {
			return nil, lerr
		}
		if stored.Status == entity.StatusPendingAuthorization && stored.SubmittedAt != nil {
			return stored, nil
		}
		return nil, domain.NewError(domain.ErrConflict, "el documento pasó a %s durante el envío", stored.Status)
	}

	log.Info().Str("access_key", next.AccessKey).Msg("comprobante recibido por el SRI")
	return next, nil
}

// CheckAuthorization consulta AutorizacionComprobantes con la clave de acceso y aplica el veredicto.
//
//   - Authorized   → transición y persistencia; también re-confirma sin llamar al SRI si ya estaba autorizado.
//   - StillPending → éxito sin ninguna escritura.
//   - Rejected     → transición y errores en la misma transacción; retorna domain.ErrAuthorityRejected.
func (p *AuthorizationPipeline) CheckAuthorization(ctx context.Context, tenantID, documentID string) (*AuthorizationResult, error) {
	log := p.log.With().Str("tenant_id", tenantID).Str("document_id", documentID).Str("operation", entity.OperationCheckAuthorization).Logger()

	doc, err := loadDocument(ctx, p.docRepo, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != entity.StatusPendingAuthorization && doc.Status != entity.StatusAuthorized {
		return nil, domain.NewError(domain.ErrNotFound, "documento %s pendiente de autorización", documentID)
	}
	if doc.AccessKey == "" {
		return nil, domain.NewError(domain.ErrPreconditionFailed, "el documento no tiene clave de acceso")
	}
	if doc.Status == entity.StatusAuthorized {
		return &AuthorizationResult{Verdict: fiscal.VerdictAuthorized, Document: doc}, nil
	}

	resp, err := p.client.CheckAuthorization(ctx, doc.AccessKey)
	if err != nil {
		log.Warn().Err(err).Msg("SRI no disponible en autorización")
		return nil, domain.UnavailableError(err)
	}

	c := fiscal.Classify(entity.OperationCheckAuthorization, *resp)
	log = log.With().Str("access_key", doc.AccessKey).Str("verdict", string(c.Verdict)).Logger()
	now := p.now().UTC()

	switch c.Verdict {
	case fiscal.VerdictStillPending:
		log.Debug().Str("status_phrase", resp.StatusPhrase).Msg("comprobante aún en procesamiento")
		return &AuthorizationResult{Verdict: fiscal.VerdictStillPending, Document: doc}, nil

	case fiscal.VerdictAuthorized:
		next, err := fiscal.MarkAuthorized(doc, resp.AuthorizationCode, resp.AuthorizationDate, now)
		if err != nil {
			return nil, err
		}
		stored, err := p.persistTerminal(ctx, tenantID, next, nil)
		if err != nil {
			return nil, err
		}
		log.Info().Str("authorization_code", stored.AuthorizationCode).Msg("comprobante autorizado")
		return &AuthorizationResult{Verdict: fiscal.VerdictAuthorized, Document: stored}, nil

	default:
		next, err := fiscal.MarkRejected(doc, now)
		if err != nil {
			return nil, err
		}
		records := make([]*entity.AuthorityErrorRecord, 0, len(c.Errors))
		for _, e := range c.Errors {
			records = append(records, &entity.AuthorityErrorRecord{
				ID:             uuid.NewString(),
				TenantID:       tenantID,
				DocumentID:     documentID,
				Operation:      c.Operation,
				Code:           e.Code,
				Message:        e.Message,
				AdditionalInfo: e.AdditionalInfo,
				OccurredAt:     now,
			})
		}
		if _, err := p.persistTerminal(ctx, tenantID, next, records); err != nil {
			return nil, err
		}
		log.Info().Int("errors", len(records)).Msg("comprobante no autorizado")
		return nil, domain.RejectedError("el SRI no autorizó el comprobante", c.Errors)
	}
}

// persistTerminal escribe la transición terminal (y los errores, si hay) en una transacción.
// Ante conflicto de versión recarga: mismo estado terminal ⇒ éxito idempotente, otro ⇒ ErrConflict.
func (p *AuthorizationPipeline) persistTerminal(
	ctx context.Context,
	tenantID string,
	next *entity.FiscalDocument,
	records []*entity.AuthorityErrorRecord,
) (*entity.FiscalDocument, error) {
	err := p.txRunner.RunFiscal(ctx, func(
		_ repository.EmissionPointRepository,
		docRepo repository.FiscalDocumentRepository,
		errorRepo repository.AuthorityErrorRepository,
	) error {
		if err := docRepo.Update(ctx, next); err != nil {
			return err
		}
		if len(records) > 0 {
			return errorRepo.CreateBatch(ctx, records)
		}
		return nil
	})
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		p.log.Error().Err(err).Str("document_id", next.ID).Msg("persistir estado terminal")
		return nil, fmt.Errorf("persistir %s: %w", next.Status, err)
	}

	stored, lerr := loadDocument(ctx, p.docRepo, tenantID, next.ID)
	if lerr != nil {
		return nil, lerr
	}
	if stored.Status == next.Status {
		p.log.Debug().Str("document_id", next.ID).Str("status", string(stored.Status)).Msg("estado terminal ya registrado")
		return stored, nil
	}
	return nil, domain.NewError(domain.ErrConflict,
		"el documento pasó a %s en otra operación", stored.Status)
}

// submitFailure traduce una recepción no aceptada al error del llamador.
// Solo errores transitorios ⇒ no disponible (reintentable); algún código del SRI ⇒ rechazo.
func submitFailure(resp *fiscal.SubmitResponse) error {
	if resp.Received {
		return nil
	}
	if len(resp.Errors) == 0 {
		return domain.RejectedError("el SRI devolvió el comprobante", []domain.AuthorityError{{
			Code:    fiscal.CodeNoMessages,
			Message: "estado " + resp.StatusPhrase + " sin mensajes del SRI",
		}})
	}
	if fiscal.AllTransient(resp.Errors) {
		return &domain.FiscalError{
			Kind:    domain.ErrUpstreamUnavailable,
			Message: "respuesta de recepción inválida",
			Errors:  resp.Errors,
		}
	}
	return domain.RejectedError("el SRI devolvió el comprobante", resp.Errors)
}

func recordsToErrors(records []*entity.AuthorityErrorRecord) []domain.AuthorityError {
	out := make([]domain.AuthorityError, 0, len(records))
	for _, r := range records {
		out = append(out, domain.AuthorityError{Code: r.Code, Message: r.Message, AdditionalInfo: r.AdditionalInfo})
	}
	return out
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/fiscal"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	"github.com/jhoicas/Comprobantes-api/pkg/sri"
)

// DocumentUseCase operaciones del ciclo de vida del comprobante fuera del pipeline SRI:
// creación, consulta, cambio de estado comercial y adjunto del XML firmado.
type DocumentUseCase struct {
	txRunner    FiscalTxRunner
	allocator   *SequenceAllocator
	docRepo     repository.FiscalDocumentRepository
	pointRepo   repository.EmissionPointRepository
	tenantRepo  repository.TenantRepository
	errorRepo   repository.AuthorityErrorRepository
	artifacts   ArtifactStore
	environment string // ambiente SRI de la clave de acceso (1 | 2)
	now         func() time.Time
	log         zerolog.Logger
}

// NewDocumentUseCase construye el caso de uso inyectando todas sus dependencias.
func NewDocumentUseCase(
	txRunner FiscalTxRunner,
	allocator *SequenceAllocator,
	docRepo repository.FiscalDocumentRepository,
	pointRepo repository.EmissionPointRepository,
	tenantRepo repository.TenantRepository,
	errorRepo repository.AuthorityErrorRepository,
	artifacts ArtifactStore,
	environment string,
	log zerolog.Logger,
) *DocumentUseCase {
	return &DocumentUseCase{
		txRunner:    txRunner,
		allocator:   allocator,
		docRepo:     docRepo,
		pointRepo:   pointRepo,
		tenantRepo:  tenantRepo,
		errorRepo:   errorRepo,
		artifacts:   artifacts,
		environment: environment,
		now:         time.Now,
		log:         log,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *DocumentUseCase) WithClock(now func() time.Time) *DocumentUseCase {
	uc.now = now
	return uc
}

// GetDocument devuelve el comprobante del tenant o ErrNotFound.
func (uc *DocumentUseCase) GetDocument(ctx context.Context, tenantID, documentID string) (*entity.FiscalDocument, error) {
	return loadDocument(ctx, uc.docRepo, tenantID, documentID)
}

// ListDocuments lista comprobantes del tenant por estado.
func (uc *DocumentUseCase) ListDocuments(ctx context.Context, tenantID string, status entity.DocumentStatus, limit int) ([]*entity.FiscalDocument, error) {
	if !status.IsValid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "estado desconocido: %q", status)
	}
	docs, err := uc.docRepo.ListByStatus(ctx, tenantID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	return docs, nil
}

// ChangeStatus aplica una transición del ciclo comercial y la persiste con control de versión.
func (uc *DocumentUseCase) ChangeStatus(ctx context.Context, tenantID, documentID string, to entity.DocumentStatus) (*entity.FiscalDocument, error) {
	doc, err := loadDocument(ctx, uc.docRepo, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	next, err := fiscal.ChangeStatus(doc, to, uc.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := uc.docRepo.Update(ctx, next); err != nil {
		return nil, versionError(err, "cambio de estado")
	}
	uc.log.Info().
		Str("tenant_id", tenantID).
		Str("document_id", documentID).
		Str("from", string(doc.Status)).
		Str("to", string(next.Status)).
		Msg("estado comercial actualizado")
	return next, nil
}

// AttachSignedArtifact recibe la referencia del XML firmado por el firmador externo,
// genera la clave de acceso y mueve el documento de Draft a PendingAuthorization.
func (uc *DocumentUseCase) AttachSignedArtifact(ctx context.Context, tenantID, documentID, artifactRef string) (*entity.FiscalDocument, error) {
	if artifactRef == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "artifact_ref es obligatorio")
	}
	doc, err := loadDocument(ctx, uc.docRepo, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if !fiscal.CanTransitionFiscal(doc.Status, entity.StatusPendingAuthorization) {
		return nil, domain.TransitionError(string(doc.Status), string(entity.StatusPendingAuthorization))
	}

	exists, err := uc.artifacts.Exists(ctx, artifactRef)
	if err != nil {
		return nil, fmt.Errorf("verificar XML firmado: %w", err)
	}
	if !exists {
		return nil, domain.NewError(domain.ErrPreconditionFailed, "el XML firmado %q no existe", artifactRef)
	}

	tenant, err := uc.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("obtener tenant: %w", err)
	}
	if tenant == nil {
		return nil, domain.NewError(domain.ErrNotFound, "tenant %s", tenantID)
	}
	point, err := uc.pointRepo.GetByID(ctx, doc.EmissionPointID)
	if err != nil {
		return nil, fmt.Errorf("obtener punto de emisión: %w", err)
	}
	if point == nil || point.TenantID != tenantID {
		return nil, domain.NewError(domain.ErrNotFound, "punto de emisión %s", doc.EmissionPointID)
	}

	accessKey, err := sri.BuildAccessKey(sri.AccessKeyParams{
		IssueDate:         doc.IssueDate,
		DocCode:           DocCode(doc.DocumentType),
		RUC:               tenant.RUC,
		Environment:       uc.environment,
		EstablishmentCode: point.EstablishmentCode,
		EmissionPointCode: point.Code,
		Sequence:          doc.Sequence,
		NumericCode:       NumericCode(doc.ID),
	})
	if err != nil {
		return nil, domain.NewError(domain.ErrPreconditionFailed, "clave de acceso: %v", err)
	}

	next, err := fiscal.MarkPendingAuthorization(doc, accessKey, artifactRef, uc.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := uc.docRepo.Update(ctx, next); err != nil {
		return nil, versionError(err, "adjuntar XML firmado")
	}
	uc.log.Info().
		Str("tenant_id", tenantID).
		Str("document_id", documentID).
		Str("access_key", accessKey).
		Msg("documento listo para autorización")
	return next, nil
}

// ListAuthorityErrors devuelve los errores del SRI registrados para el documento.
func (uc *DocumentUseCase) ListAuthorityErrors(ctx context.Context, tenantID, documentID string) ([]*entity.AuthorityErrorRecord, error) {
	if _, err := loadDocument(ctx, uc.docRepo, tenantID, documentID); err != nil {
		return nil, err
	}
	records, err := uc.errorRepo.ListByDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("listar errores SRI: %w", err)
	}
	return records, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// DocCode código SRI (tabla 3) del tipo de comprobante.
func DocCode(t entity.DocumentType) string {
	switch t {
	case entity.DocumentTypeCreditNote:
		return sri.DocCodeCreditNote
	case entity.DocumentTypeDebitNote:
		return sri.DocCodeDebitNote
	case entity.DocumentTypeWithholding:
		return sri.DocCodeWithholding
	default:
		return sri.DocCodeInvoice
	}
}

// NumericCode código numérico de 8 dígitos de la clave de acceso, estable por documento.
func NumericCode(documentID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(documentID))
	return fmt.Sprintf("%08d", h.Sum32()%100_000_000)
}

// loadDocument carga el documento; ausente o de otro tenant es ErrNotFound.
func loadDocument(ctx context.Context, repo repository.FiscalDocumentRepository, tenantID, documentID string) (*entity.FiscalDocument, error) {
	doc, err := repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("obtener documento: %w", err)
	}
	if doc == nil || doc.TenantID != tenantID {
		return nil, domain.NewError(domain.ErrNotFound, "documento %s", documentID)
	}
	return doc, nil
}

func versionError(err error, op string) error {
	if errors.Is(err, domain.ErrConflict) {
		return domain.NewError(domain.ErrConflict, "%s: el documento cambió, reintente", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

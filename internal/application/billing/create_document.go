package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// CreateDocument asigna el secuencial y registra el comprobante en Draft en una sola
// transacción: si la inserción falla el contador no avanza.
func (uc *DocumentUseCase) CreateDocument(ctx context.Context, tenantID string, in dto.CreateDocumentRequest) (*entity.FiscalDocument, error) {
	if in.EmissionPointID == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "emission_point_id es obligatorio")
	}
	docType := entity.DocumentType(in.DocumentType)
	if !docType.IsValid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "tipo de comprobante %q no soportado", in.DocumentType)
	}
	if in.Total.IsNegative() {
		return nil, domain.NewError(domain.ErrInvalidInput, "el total no puede ser negativo")
	}

	now := uc.now().UTC()
	issueDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if in.IssueDate != "" {
		d, err := time.Parse("2006-01-02", in.IssueDate)
		if err != nil {
			return nil, domain.NewError(domain.ErrInvalidInput, "issue_date debe tener formato YYYY-MM-DD")
		}
		issueDate = d
	}

	var doc *entity.FiscalDocument
	err := uc.txRunner.RunFiscal(ctx, func(
		pointRepo repository.EmissionPointRepository,
		docRepo repository.FiscalDocumentRepository,
		_ repository.AuthorityErrorRepository,
	) error {
		alloc, err := uc.allocator.AllocateNext(ctx, pointRepo, tenantID, in.EmissionPointID, docType)
		if err != nil {
			return err
		}
		doc = &entity.FiscalDocument{
			ID:              uuid.NewString(),
			TenantID:        tenantID,
			EmissionPointID: alloc.Point.ID,
			DocumentType:    docType,
			Sequence:        alloc.Sequence,
			DocumentNumber:  alloc.DocumentNumber,
			Status:          entity.StatusDraft,
			IssueDate:       issueDate,
			Total:           in.Total,
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return docRepo.Create(ctx, doc)
	})
	if err != nil {
		if !domain.IsBusiness(err) && !domain.IsRetryable(err) {
			uc.log.Error().Err(err).Str("tenant_id", tenantID).Msg("crear documento")
		}
		return nil, err
	}

	uc.log.Info().
		Str("tenant_id", tenantID).
		Str("document_id", doc.ID).
		Str("document_number", doc.DocumentNumber).
		Msg("documento creado")
	return doc, nil
}

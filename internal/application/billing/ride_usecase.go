package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// RIDEUseCase genera el RIDE (representación impresa) de un comprobante autorizado.
type RIDEUseCase struct {
	docRepo    repository.FiscalDocumentRepository
	tenantRepo repository.TenantRepository
	pointRepo  repository.EmissionPointRepository
	generator  RIDEGenerator
}

// NewRIDEUseCase construye el caso de uso.
func NewRIDEUseCase(
	docRepo repository.FiscalDocumentRepository,
	tenantRepo repository.TenantRepository,
	pointRepo repository.EmissionPointRepository,
	generator RIDEGenerator,
) *RIDEUseCase {
	return &RIDEUseCase{docRepo: docRepo, tenantRepo: tenantRepo, pointRepo: pointRepo, generator: generator}
}

// DownloadRIDE retorna (pdf, nombre de archivo). Solo documentos Authorized tienen RIDE.
func (uc *RIDEUseCase) DownloadRIDE(ctx context.Context, tenantID, documentID string) ([]byte, string, error) {
	doc, err := loadDocument(ctx, uc.docRepo, tenantID, documentID)
	if err != nil {
		return nil, "", err
	}
	if doc.Status != entity.StatusAuthorized {
		return nil, "", domain.NewError(domain.ErrPreconditionFailed,
			"el RIDE solo existe para comprobantes autorizados (estado actual %s)", doc.Status)
	}

	tenant, err := uc.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, "", fmt.Errorf("ride: obtener tenant: %w", err)
	}
	if tenant == nil {
		return nil, "", domain.NewError(domain.ErrNotFound, "tenant %s", tenantID)
	}
	point, err := uc.pointRepo.GetByID(ctx, doc.EmissionPointID)
	if err != nil {
		return nil, "", fmt.Errorf("ride: obtener punto de emisión: %w", err)
	}
	if point == nil {
		return nil, "", domain.NewError(domain.ErrNotFound, "punto de emisión %s", doc.EmissionPointID)
	}

	pdf, err := uc.generator.GenerateRIDE(ctx, doc, tenant, point)
	if err != nil {
		return nil, "", fmt.Errorf("ride: generación fallida: %w", err)
	}
	return pdf, fmt.Sprintf("RIDE_%s.pdf", doc.DocumentNumber), nil
}

package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// EmissionPointUseCase alta y consulta de puntos de emisión del tenant.
type EmissionPointUseCase struct {
	txRunner  FiscalTxRunner
	pointRepo repository.EmissionPointRepository
}

// NewEmissionPointUseCase construye el caso de uso.
func NewEmissionPointUseCase(txRunner FiscalTxRunner, pointRepo repository.EmissionPointRepository) *EmissionPointUseCase {
	return &EmissionPointUseCase{txRunner: txRunner, pointRepo: pointRepo}
}

// Create registra un punto de emisión con sus contadores en cero (punto y contadores en una transacción).
func (uc *EmissionPointUseCase) Create(ctx context.Context, tenantID string, in dto.CreateEmissionPointRequest) (*entity.EmissionPoint, error) {
	if !isDigits(in.EstablishmentCode, 3) || !isDigits(in.Code, 3) {
		return nil, domain.NewError(domain.ErrInvalidInput, "establecimiento y punto deben tener 3 dígitos")
	}
	now := time.Now().UTC()
	point := &entity.EmissionPoint{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		EstablishmentCode: in.EstablishmentCode,
		Code:              in.Code,
		Name:              in.Name,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := uc.txRunner.RunFiscal(ctx, func(pointRepo repository.EmissionPointRepository, _ repository.FiscalDocumentRepository, _ repository.AuthorityErrorRepository) error {
		return pointRepo.Create(ctx, point)
	})
	if err != nil {
		return nil, err
	}
	return point, nil
}

// List devuelve los puntos de emisión del tenant.
func (uc *EmissionPointUseCase) List(ctx context.Context, tenantID string) ([]*entity.EmissionPoint, error) {
	points, err := uc.pointRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listar puntos de emisión: %w", err)
	}
	return points, nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

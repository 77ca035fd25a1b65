package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	"github.com/jhoicas/Comprobantes-api/pkg/sri"
)

// TenantUseCase alta de contribuyentes emisores.
type TenantUseCase struct {
	repo repository.TenantRepository
}

// NewTenantUseCase construye el caso de uso con el puerto de persistencia.
func NewTenantUseCase(repo repository.TenantRepository) *TenantUseCase {
	return &TenantUseCase{repo: repo}
}

// Create valida el RUC y registra el tenant activo. Un RUC repetido devuelve domain.ErrConflict.
func (uc *TenantUseCase) Create(ctx context.Context, in dto.CreateTenantRequest) (*entity.Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "razón social obligatoria")
	}
	if err := sri.ValidateRUC(in.RUC); err != nil {
		return nil, &domain.FiscalError{Kind: domain.ErrInvalidInput, Message: "RUC inválido", Cause: err}
	}
	now := time.Now().UTC()
	tenant := &entity.Tenant{
		ID:        uuid.New().String(),
		Name:      name,
		RUC:       in.RUC,
		Status:    entity.TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// Get devuelve el tenant o domain.ErrNotFound.
func (uc *TenantUseCase) Get(ctx context.Context, id string) (*entity.Tenant, error) {
	t, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NewError(domain.ErrNotFound, "tenant %s", id)
	}
	return t, nil
}

package repository

import (
	"context"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// TenantRepository define el puerto de lectura de contribuyentes emisores.
type TenantRepository interface {
	Create(ctx context.Context, t *entity.Tenant) error
	// GetByID devuelve nil, nil si el tenant no existe.
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
}

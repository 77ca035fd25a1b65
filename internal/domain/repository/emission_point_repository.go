package repository

import (
	"context"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// EmissionPointRepository define el puerto de persistencia para puntos de emisión y sus contadores.
type EmissionPointRepository interface {
	Create(ctx context.Context, point *entity.EmissionPoint) error
	// GetByID devuelve nil, nil si el punto no existe.
	GetByID(ctx context.Context, id string) (*entity.EmissionPoint, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.EmissionPoint, error)

	// GetCounter lee el contador (valor + versión) de un tipo de comprobante.
	// Un contador inexistente se devuelve con Value = 0 y Version = 0.
	GetCounter(ctx context.Context, pointID string, docType entity.DocumentType) (entity.SequenceCounter, error)

	// CompareAndSwapCounter escribe newValue solo si la versión almacenada sigue siendo
	// expectedVersion (y la incrementa). Devuelve false si otro escritor ganó la carrera.
	CompareAndSwapCounter(ctx context.Context, pointID string, docType entity.DocumentType, expectedVersion, newValue int64) (bool, error)
}

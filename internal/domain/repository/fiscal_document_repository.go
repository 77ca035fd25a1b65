package repository

import (
	"context"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// FiscalDocumentRepository define el puerto de persistencia para comprobantes.
type FiscalDocumentRepository interface {
	Create(ctx context.Context, doc *entity.FiscalDocument) error
	// GetByID devuelve nil, nil si el documento no existe.
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)

	// Update escribe el documento solo si la versión almacenada es doc.Version.
	// En éxito incrementa doc.Version; si la versión cambió devuelve domain.ErrConflict.
	Update(ctx context.Context, doc *entity.FiscalDocument) error

	// ListByStatus lista los documentos de un tenant en un estado (más antiguos primero).
	ListByStatus(ctx context.Context, tenantID string, status entity.DocumentStatus, limit int) ([]*entity.FiscalDocument, error)
}

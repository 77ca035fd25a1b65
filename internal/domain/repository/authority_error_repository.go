package repository

import (
	"context"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// AuthorityErrorRepository persiste los errores del SRI de un rechazo definitivo (solo inserción).
type AuthorityErrorRepository interface {
	CreateBatch(ctx context.Context, records []*entity.AuthorityErrorRecord) error
	ListByDocument(ctx context.Context, tenantID, documentID string) ([]*entity.AuthorityErrorRecord, error)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

var _ repository.AuthorityErrorRepository = (*AuthorityErrorRepo)(nil)

// AuthorityErrorRepo implementación de AuthorityErrorRepository (usable con pool o tx).
type AuthorityErrorRepo struct {
	q Querier
}

// NewAuthorityErrorRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuthorityErrorRepository(q Querier) *AuthorityErrorRepo {
	return &AuthorityErrorRepo{q: q}
}

// CreateBatch inserta todos los registros con CopyFrom cuando el Querier lo soporta.
func (r *AuthorityErrorRepo) CreateBatch(ctx context.Context, records []*entity.AuthorityErrorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if copier, ok := r.q.(interface {
		CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error)
	}); ok {
		_, err := copier.CopyFrom(ctx,
			pgx.Identifier{"authority_errors"},
			[]string{"id", "tenant_id", "document_id", "operation", "code", "message", "additional_info", "occurred_at"},
			pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
				rec := records[i]
				return []any{rec.ID, rec.TenantID, rec.DocumentID, rec.Operation, rec.Code, rec.Message,
					nullIfEmpty(rec.AdditionalInfo), rec.OccurredAt}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy authority_errors: %w", err)
		}
		return nil
	}

	const q = `
		INSERT INTO authority_errors (id, tenant_id, document_id, operation, code, message, additional_info, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, rec := range records {
		if _, err := r.q.Exec(ctx, q, rec.ID, rec.TenantID, rec.DocumentID, rec.Operation,
			rec.Code, rec.Message, nullIfEmpty(rec.AdditionalInfo), rec.OccurredAt); err != nil {
			return fmt.Errorf("insert authority_error: %w", err)
		}
	}
	return nil
}

func (r *AuthorityErrorRepo) ListByDocument(ctx context.Context, tenantID, documentID string) ([]*entity.AuthorityErrorRecord, error) {
	const q = `
		SELECT id, tenant_id, document_id, operation, code, message, additional_info, occurred_at
		FROM authority_errors
		WHERE tenant_id = $1 AND document_id = $2
		ORDER BY seq`
	rows, err := r.q.Query(ctx, q, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("list authority_errors: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuthorityErrorRecord
	for rows.Next() {
		var rec entity.AuthorityErrorRecord
		var info *string
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.DocumentID, &rec.Operation, &rec.Code, &rec.Message, &info, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan authority_error: %w", err)
		}
		rec.AdditionalInfo = derefStr(info)
		list = append(list, &rec)
	}
	return list, rows.Err()
}

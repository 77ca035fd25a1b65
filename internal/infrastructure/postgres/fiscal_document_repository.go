package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

var _ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)

// FiscalDocumentRepo implementación de FiscalDocumentRepository (usable con pool o tx).
type FiscalDocumentRepo struct {
	q Querier
}

// NewFiscalDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalDocumentRepository(q Querier) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{q: q}
}

const fiscalDocumentColumns = `
	id, tenant_id, emission_point_id, document_type, sequence, document_number, status,
	issue_date, total, access_key, signed_artifact_ref, submitted_at, authorization_code,
	authorized_at, paid_at, version, created_at, updated_at`

func (r *FiscalDocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	const q = `
		INSERT INTO fiscal_documents (` + fiscalDocumentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, q,
		doc.ID, doc.TenantID, doc.EmissionPointID, string(doc.DocumentType), doc.Sequence, doc.DocumentNumber,
		string(doc.Status), doc.IssueDate, doc.Total,
		nullIfEmpty(doc.AccessKey), nullIfEmpty(doc.SignedArtifactRef), utcPtr(doc.SubmittedAt),
		nullIfEmpty(doc.AuthorizationCode), utcPtr(doc.AuthorizedAt), utcPtr(doc.PaidAt),
		doc.Version, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.ErrConflict, "documento %s duplicado", doc.DocumentNumber)
		}
		return fmt.Errorf("insert fiscal_document: %w", err)
	}
	return nil
}

func (r *FiscalDocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	q := `SELECT ` + fiscalDocumentColumns + ` FROM fiscal_documents WHERE id = $1`
	doc, err := scanFiscalDocument(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal_document: %w", err)
	}
	return doc, nil
}

// Update escribe con control de versión optimista: 0 filas afectadas es domain.ErrConflict.
func (r *FiscalDocumentRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	const q = `
		UPDATE fiscal_documents
		SET status = $3, total = $4, access_key = $5, signed_artifact_ref = $6, submitted_at = $7,
		    authorization_code = $8, authorized_at = $9, paid_at = $10, updated_at = $11,
		    version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, q,
		doc.ID, doc.Version,
		string(doc.Status), doc.Total,
		nullIfEmpty(doc.AccessKey), nullIfEmpty(doc.SignedArtifactRef), utcPtr(doc.SubmittedAt),
		nullIfEmpty(doc.AuthorizationCode), utcPtr(doc.AuthorizedAt), utcPtr(doc.PaidAt),
		doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.ErrConflict, "clave de acceso %s duplicada", doc.AccessKey)
		}
		return fmt.Errorf("update fiscal_document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	doc.Version++
	return nil
}

func (r *FiscalDocumentRepo) ListByStatus(ctx context.Context, tenantID string, status entity.DocumentStatus, limit int) ([]*entity.FiscalDocument, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + fiscalDocumentColumns + `
		FROM fiscal_documents
		WHERE tenant_id = $1 AND status = $2
		ORDER BY created_at, id
		LIMIT $3`
	rows, err := r.q.Query(ctx, q, tenantID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list fiscal_documents: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalDocument
	for rows.Next() {
		doc, err := scanFiscalDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fiscal_document: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

func scanFiscalDocument(row pgxScanner) (*entity.FiscalDocument, error) {
	var (
		d                                entity.FiscalDocument
		docType, status                  string
		accessKey, artifactRef, authCode *string
	)
	err := row.Scan(
		&d.ID, &d.TenantID, &d.EmissionPointID, &docType, &d.Sequence, &d.DocumentNumber, &status,
		&d.IssueDate, &d.Total, &accessKey, &artifactRef, &d.SubmittedAt, &authCode,
		&d.AuthorizedAt, &d.PaidAt, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.DocumentType = entity.DocumentType(docType)
	d.Status = entity.DocumentStatus(status)
	d.AccessKey = derefStr(accessKey)
	d.SignedArtifactRef = derefStr(artifactRef)
	d.AuthorizationCode = derefStr(authCode)
	return &d, nil
}

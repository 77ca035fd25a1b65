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

var _ repository.EmissionPointRepository = (*EmissionPointRepo)(nil)

// EmissionPointRepo implementación de EmissionPointRepository (usable con pool o tx).
// Los contadores viven en sequence_counters; nunca se bloquean con SELECT ... FOR UPDATE.
type EmissionPointRepo struct {
	q Querier
}

// NewEmissionPointRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEmissionPointRepository(q Querier) *EmissionPointRepo {
	return &EmissionPointRepo{q: q}
}

// Create inserta el punto y sus cuatro contadores en cero.
func (r *EmissionPointRepo) Create(ctx context.Context, p *entity.EmissionPoint) error {
	const q = `
		INSERT INTO emission_points (id, tenant_id, establishment_code, code, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`
	if _, err := r.q.Exec(ctx, q, p.ID, p.TenantID, p.EstablishmentCode, p.Code, p.Name, p.IsActive); err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.ErrConflict, "punto %s-%s ya existe", p.EstablishmentCode, p.Code)
		}
		return fmt.Errorf("insert emission_point: %w", err)
	}
	const qc = `
		INSERT INTO sequence_counters (emission_point_id, document_type, value, version)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (emission_point_id, document_type) DO NOTHING`
	for _, t := range entity.DocumentTypes {
		if _, err := r.q.Exec(ctx, qc, p.ID, string(t), p.Counter(t).Value); err != nil {
			return fmt.Errorf("insert sequence_counter: %w", err)
		}
	}
	return nil
}

func (r *EmissionPointRepo) GetByID(ctx context.Context, id string) (*entity.EmissionPoint, error) {
	const q = `
		SELECT id, tenant_id, establishment_code, code, name, is_active, created_at, updated_at
		FROM emission_points WHERE id = $1`
	p, err := scanEmissionPoint(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get emission_point: %w", err)
	}
	if err := r.loadCounters(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *EmissionPointRepo) ListByTenant(ctx context.Context, tenantID string) ([]*entity.EmissionPoint, error) {
	const q = `
		SELECT id, tenant_id, establishment_code, code, name, is_active, created_at, updated_at
		FROM emission_points WHERE tenant_id = $1
		ORDER BY establishment_code, code`
	rows, err := r.q.Query(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list emission_points: %w", err)
	}
	var list []*entity.EmissionPoint
	for rows.Next() {
		p, err := scanEmissionPoint(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan emission_point: %w", err)
		}
		list = append(list, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range list {
		if err := r.loadCounters(ctx, p); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *EmissionPointRepo) GetCounter(ctx context.Context, pointID string, docType entity.DocumentType) (entity.SequenceCounter, error) {
	const q = `
		SELECT value, version FROM sequence_counters
		WHERE emission_point_id = $1 AND document_type = $2`
	c := entity.SequenceCounter{DocumentType: docType}
	err := r.q.QueryRow(ctx, q, pointID, string(docType)).Scan(&c.Value, &c.Version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return c, fmt.Errorf("get sequence_counter: %w", err)
	}
	return c, nil
}

// CompareAndSwapCounter actualiza solo si la versión no cambió. Con expectedVersion 0 y sin fila,
// inserta el contador; si otro escritor la insertó antes, pierde la carrera.
func (r *EmissionPointRepo) CompareAndSwapCounter(ctx context.Context, pointID string, docType entity.DocumentType, expectedVersion, newValue int64) (bool, error) {
	const q = `
		UPDATE sequence_counters
		SET value = $4, version = version + 1, updated_at = now()
		WHERE emission_point_id = $1 AND document_type = $2 AND version = $3`
	tag, err := r.q.Exec(ctx, q, pointID, string(docType), expectedVersion, newValue)
	if err != nil {
		return false, fmt.Errorf("cas sequence_counter: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if expectedVersion != 0 {
		return false, nil
	}
	const qi = `
		INSERT INTO sequence_counters (emission_point_id, document_type, value, version)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (emission_point_id, document_type) DO NOTHING`
	tag, err = r.q.Exec(ctx, qi, pointID, string(docType), newValue)
	if err != nil {
		return false, fmt.Errorf("insert sequence_counter: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EmissionPointRepo) loadCounters(ctx context.Context, p *entity.EmissionPoint) error {
	const q = `SELECT document_type, value, version FROM sequence_counters WHERE emission_point_id = $1`
	rows, err := r.q.Query(ctx, q, p.ID)
	if err != nil {
		return fmt.Errorf("list sequence_counters: %w", err)
	}
	defer rows.Close()
	p.Counters = make(map[entity.DocumentType]entity.SequenceCounter)
	for rows.Next() {
		var c entity.SequenceCounter
		var t string
		if err := rows.Scan(&t, &c.Value, &c.Version); err != nil {
			return fmt.Errorf("scan sequence_counter: %w", err)
		}
		c.DocumentType = entity.DocumentType(t)
		p.Counters[c.DocumentType] = c
	}
	return rows.Err()
}

func scanEmissionPoint(row pgxScanner) (*entity.EmissionPoint, error) {
	var p entity.EmissionPoint
	if err := row.Scan(&p.ID, &p.TenantID, &p.EstablishmentCode, &p.Code, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

type execCall struct {
	sql  string
	args []any
}

// scriptedQuerier responde cada Exec con el siguiente resultado del guion.
type scriptedQuerier struct {
	results []execResult
	calls   []execCall
}

type execResult struct {
	tag string
	err error
}

func (q *scriptedQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.calls = append(q.calls, execCall{sql: sql, args: args})
	if len(q.results) == 0 {
		return pgconn.CommandTag{}, errors.New("exec no esperado")
	}
	r := q.results[0]
	q.results = q.results[1:]
	return pgconn.NewCommandTag(r.tag), r.err
}

func (q *scriptedQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("query no esperado")
}

func (q *scriptedQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{}
}

type errRow struct{}

func (errRow) Scan(...any) error { return errors.New("query row no esperado") }

func TestCompareAndSwapCounter_ActualizaConVersion(t *testing.T) {
	q := &scriptedQuerier{results: []execResult{{tag: "UPDATE 1"}}}
	repo := NewEmissionPointRepository(q)

	ok, err := repo.CompareAndSwapCounter(context.Background(), "p1", entity.DocumentTypeInvoice, 4, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, q.calls, 1)
	assert.Contains(t, q.calls[0].sql, "version = $3")
	assert.Contains(t, q.calls[0].sql, "version = version + 1")
	assert.Equal(t, []any{"p1", "invoice", int64(4), int64(5)}, q.calls[0].args)
}

func TestCompareAndSwapCounter_VersionViejaPierde(t *testing.T) {
	q := &scriptedQuerier{results: []execResult{{tag: "UPDATE 0"}}}
	repo := NewEmissionPointRepository(q)

	ok, err := repo.CompareAndSwapCounter(context.Background(), "p1", entity.DocumentTypeInvoice, 4, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, q.calls, 1, "con versión > 0 no se intenta insertar")
}

func TestCompareAndSwapCounter_InsertaPrimerContador(t *testing.T) {
	q := &scriptedQuerier{results: []execResult{{tag: "UPDATE 0"}, {tag: "INSERT 0 1"}}}
	repo := NewEmissionPointRepository(q)

	ok, err := repo.CompareAndSwapCounter(context.Background(), "p1", entity.DocumentTypeCreditNote, 0, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, q.calls, 2)
	assert.True(t, strings.Contains(q.calls[1].sql, "INSERT INTO sequence_counters"))
	assert.Contains(t, q.calls[1].sql, "ON CONFLICT (emission_point_id, document_type) DO NOTHING")
	assert.Equal(t, []any{"p1", "credit_note", int64(1)}, q.calls[1].args)
}

func TestCompareAndSwapCounter_InsercionConcurrentePierde(t *testing.T) {
	q := &scriptedQuerier{results: []execResult{{tag: "UPDATE 0"}, {tag: "INSERT 0 0"}}}
	repo := NewEmissionPointRepository(q)

	ok, err := repo.CompareAndSwapCounter(context.Background(), "p1", entity.DocumentTypeInvoice, 0, 1)
	require.NoError(t, err)
	assert.False(t, ok, "otro escritor creó la fila primero")
}

func TestCompareAndSwapCounter_ErrorDeBase(t *testing.T) {
	q := &scriptedQuerier{results: []execResult{{err: errors.New("conexión perdida")}}}
	repo := NewEmissionPointRepository(q)

	ok, err := repo.CompareAndSwapCounter(context.Background(), "p1", entity.DocumentTypeInvoice, 0, 1)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "cas sequence_counter")
}

func TestFiscalDocumentUpdate_IncrementaVersion(t *testing.T) {
	q := &scriptedQuerier{results: []execResult{{tag: "UPDATE 1"}}}
	repo := NewFiscalDocumentRepository(q)
	doc := &entity.FiscalDocument{ID: "d1", Status: entity.StatusAuthorized, Version: 3}

	require.NoError(t, repo.Update(context.Background(), doc))
	assert.Equal(t, int64(4), doc.Version)

	require.Len(t, q.calls, 1)
	assert.Contains(t, q.calls[0].sql, "WHERE id = $1 AND version = $2")
	assert.Equal(t, "d1", q.calls[0].args[0])
	assert.Equal(t, int64(3), q.calls[0].args[1])
	assert.Equal(t, "Authorized", q.calls[0].args[2])
}

func TestFiscalDocumentUpdate_VersionCambiada(t *testing.T) {
	q := &scriptedQuerier{results: []execResult{{tag: "UPDATE 0"}}}
	repo := NewFiscalDocumentRepository(q)
	doc := &entity.FiscalDocument{ID: "d1", Status: entity.StatusAuthorized, Version: 3}

	err := repo.Update(context.Background(), doc)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int64(3), doc.Version, "sin escritura no avanza la versión")
}

func TestFiscalDocumentUpdate_ClaveDeAccesoDuplicada(t *testing.T) {
	q := &scriptedQuerier{results: []execResult{{err: &pgconn.PgError{Code: "23505"}}}}
	repo := NewFiscalDocumentRepository(q)
	doc := &entity.FiscalDocument{ID: "d1", AccessKey: "1510202601179001234500110010020000001231234567810", Version: 1}

	err := repo.Update(context.Background(), doc)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int64(1), doc.Version)
}

package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/memory"
)

func TestCompareAndSwapCounter(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEmissionPointRepository(memory.NewStore())

	c, err := repo.GetCounter(ctx, "p1", entity.DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.Value)

	ok, err := repo.CompareAndSwapCounter(ctx, "p1", entity.DocumentTypeInvoice, 0, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CompareAndSwapCounter(ctx, "p1", entity.DocumentTypeInvoice, 0, 1)
	require.NoError(t, err)
	assert.False(t, ok, "versión vieja pierde la carrera")

	c, _ = repo.GetCounter(ctx, "p1", entity.DocumentTypeInvoice)
	assert.Equal(t, int64(1), c.Value)
	assert.Equal(t, int64(1), c.Version)

	other, _ := repo.GetCounter(ctx, "p1", entity.DocumentTypeCreditNote)
	assert.Equal(t, int64(0), other.Value, "contadores independientes por tipo")
}

func TestUpdate_ConflictoDeVersion(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewFiscalDocumentRepository(memory.NewStore())
	require.NoError(t, repo.Create(ctx, &entity.FiscalDocument{ID: "d1", TenantID: "t1", Status: entity.StatusDraft, Version: 1}))

	a, _ := repo.GetByID(ctx, "d1")
	b, _ := repo.GetByID(ctx, "d1")

	a.Status = entity.StatusSent
	require.NoError(t, repo.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Status = entity.StatusCancelled
	assert.ErrorIs(t, repo.Update(ctx, b), domain.ErrConflict)

	stored, _ := repo.GetByID(ctx, "d1")
	assert.Equal(t, entity.StatusSent, stored.Status)
}

func TestRunFiscal_RollbackDeshaceTodo(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	runner := memory.NewTxRunner(store)
	boom := errors.New("boom")

	err := runner.RunFiscal(ctx, func(p repository.EmissionPointRepository, d repository.FiscalDocumentRepository, e repository.AuthorityErrorRepository) error {
		ok, err := p.CompareAndSwapCounter(ctx, "p1", entity.DocumentTypeInvoice, 0, 1)
		require.True(t, ok)
		require.NoError(t, err)
		require.NoError(t, d.Create(ctx, &entity.FiscalDocument{ID: "d1", TenantID: "t1", Version: 1}))
		require.NoError(t, e.CreateBatch(ctx, []*entity.AuthorityErrorRecord{{ID: "e1", TenantID: "t1", DocumentID: "d1"}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, _ := memory.NewEmissionPointRepository(store).GetCounter(ctx, "p1", entity.DocumentTypeInvoice)
	assert.Equal(t, int64(0), c.Value)
	doc, _ := memory.NewFiscalDocumentRepository(store).GetByID(ctx, "d1")
	assert.Nil(t, doc)
	errs, _ := memory.NewAuthorityErrorRepository(store).ListByDocument(ctx, "t1", "d1")
	assert.Empty(t, errs)
}

func TestRunFiscal_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memory.NewStore()
	runner := memory.NewTxRunner(store)

	err := runner.RunFiscal(ctx, func(_ repository.EmissionPointRepository, d repository.FiscalDocumentRepository, _ repository.AuthorityErrorRepository) error {
		require.NoError(t, d.Create(ctx, &entity.FiscalDocument{ID: "d1", TenantID: "t1", Version: 1}))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	doc, _ := memory.NewFiscalDocumentRepository(store).GetByID(context.Background(), "d1")
	assert.Nil(t, doc, "cancelación antes del commit no deja escrituras")
}

func TestCompareAndSwapCounter_ClaveNoDependeDelBufferDelLlamador(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEmissionPointRepository(memory.NewStore())

	// fiber entrega los parámetros de ruta apuntando a un buffer que reutiliza.
	buf := []byte("invoice")
	aliased := entity.DocumentType(unsafe.String(&buf[0], len(buf)))
	ok, err := repo.CompareAndSwapCounter(ctx, "p1", aliased, 0, 1)
	require.NoError(t, err)
	require.True(t, ok)

	copy(buf, "debit_n")

	c, err := repo.GetCounter(ctx, "p1", entity.DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Value)
	assert.Equal(t, entity.DocumentTypeInvoice, c.DocumentType)

	point := &entity.EmissionPoint{ID: "p1", TenantID: "t1", EstablishmentCode: "001", Code: "002"}
	require.NoError(t, repo.Create(ctx, point))
	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, map[entity.DocumentType]entity.SequenceCounter{
		entity.DocumentTypeInvoice: {DocumentType: entity.DocumentTypeInvoice, Value: 1, Version: 1},
	}, got.Counters)
}

func TestRunFiscal_RollbackConcurrenteNoDejaHuecos(t *testing.T) {
	const n = 20
	ctx := context.Background()
	store := memory.NewStore()
	runner := memory.NewTxRunner(store)
	boom := errors.New("boom")

	// cada transacción lee y avanza el contador; las impares fallan después del CAS.
	allocate := func(fail bool) error {
		return runner.RunFiscal(ctx, func(p repository.EmissionPointRepository, _ repository.FiscalDocumentRepository, _ repository.AuthorityErrorRepository) error {
			c, err := p.GetCounter(ctx, "p1", entity.DocumentTypeInvoice)
			if err != nil {
				return err
			}
			ok, err := p.CompareAndSwapCounter(ctx, "p1", entity.DocumentTypeInvoice, c.Version, c.Value+1)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrContention
			}
			if fail {
				return boom
			}
			return nil
		})
	}

	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = allocate(i%2 == 1)
		}()
	}
	wg.Wait()

	committed := 0
	for i, err := range results {
		if i%2 == 1 {
			assert.ErrorIs(t, err, boom)
			continue
		}
		assert.NoError(t, err)
		committed++
	}

	c, err := memory.NewEmissionPointRepository(store).GetCounter(ctx, "p1", entity.DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(committed), c.Value, "los rollbacks no consumen secuenciales")
	assert.Equal(t, int64(committed), c.Version)
}

package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/fiscal"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/memory"
)

const (
	tenantID = "tenant-1"
	pointID  = "point-1"
	testRUC  = "1790012345001"
)

var fixedNow = time.Date(2026, 10, 15, 15, 30, 0, 0, time.UTC)

// fakeAuthority cliente SRI programable que cuenta las llamadas.
type fakeAuthority struct {
	mu          sync.Mutex
	submitCalls int
	checkCalls  int
	submitResp  *fiscal.SubmitResponse
	checkResp   *fiscal.AuthorizationResponse
	err         error
}

func (f *fakeAuthority) Submit(_ context.Context, _ []byte) (*fiscal.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.submitResp, nil
}

func (f *fakeAuthority) CheckAuthorization(_ context.Context, _ string) (*fiscal.AuthorizationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.checkResp, nil
}

// fakeArtifacts almacén de XML firmados en memoria.
type fakeArtifacts map[string][]byte

func (f fakeArtifacts) Exists(_ context.Context, ref string) (bool, error) {
	_, ok := f[ref]
	return ok, nil
}

func (f fakeArtifacts) Read(_ context.Context, ref string) ([]byte, error) {
	return f[ref], nil
}

// spyRunner cuenta las transacciones abiertas.
type spyRunner struct {
	inner billing.FiscalTxRunner
	mu    sync.Mutex
	runs  int
}

func (s *spyRunner) RunFiscal(ctx context.Context, fn func(repository.EmissionPointRepository, repository.FiscalDocumentRepository, repository.AuthorityErrorRepository) error) error {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	return s.inner.RunFiscal(ctx, fn)
}

// spyDocRepo cuenta las escrituras directas.
type spyDocRepo struct {
	repository.FiscalDocumentRepository
	writes int
}

func (s *spyDocRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	s.writes++
	return s.FiscalDocumentRepository.Update(ctx, doc)
}

type fixture struct {
	store     *memory.Store
	runner    *spyRunner
	docs      *spyDocRepo
	points    *memory.EmissionPointRepo
	errs      *memory.AuthorityErrorRepo
	artifacts fakeArtifacts
	client    *fakeAuthority
	allocator *billing.SequenceAllocator
	documents *billing.DocumentUseCase
	pipeline  *billing.AuthorizationPipeline
}

func newFixture(t *testing.T, maxAttempts int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{
		store:     store,
		runner:    &spyRunner{inner: memory.NewTxRunner(store)},
		docs:      &spyDocRepo{FiscalDocumentRepository: memory.NewFiscalDocumentRepository(store)},
		points:    memory.NewEmissionPointRepository(store),
		errs:      memory.NewAuthorityErrorRepository(store),
		artifacts: fakeArtifacts{},
		client:    &fakeAuthority{},
	}
	tenants := memory.NewTenantRepository(store)
	require.NoError(t, tenants.Create(ctx, &entity.Tenant{ID: tenantID, Name: "Comercial Andina", RUC: testRUC, Status: entity.TenantStatusActive}))
	require.NoError(t, tenants.Create(ctx, &entity.Tenant{ID: "tenant-2", Name: "Otro", RUC: "0990012345001", Status: entity.TenantStatusActive}))
	require.NoError(t, f.points.Create(ctx, &entity.EmissionPoint{ID: pointID, TenantID: tenantID, EstablishmentCode: "001", Code: "002", IsActive: true}))
	require.NoError(t, f.points.Create(ctx, &entity.EmissionPoint{ID: "point-off", TenantID: tenantID, EstablishmentCode: "001", Code: "009", IsActive: false}))

	log := zerolog.Nop()
	f.allocator = billing.NewSequenceAllocator(maxAttempts, log)
	clock := func() time.Time { return fixedNow }
	f.documents = billing.NewDocumentUseCase(f.runner, f.allocator, f.docs, f.points, tenants, f.errs, f.artifacts, "1", log).WithClock(clock)
	f.pipeline = billing.NewAuthorizationPipeline(f.runner, f.docs, f.errs, f.artifacts, f.client, log).WithClock(clock)
	return f
}

// draft crea un documento en Draft.
func (f *fixture) draft(t *testing.T) *entity.FiscalDocument {
	t.Helper()
	doc, err := f.documents.CreateDocument(context.Background(), tenantID, dto.CreateDocumentRequest{
		EmissionPointID: pointID,
		DocumentType:    string(entity.DocumentTypeInvoice),
		IssueDate:       "2026-10-15",
		Total:           decimal.RequireFromString("112.00"),
	})
	require.NoError(t, err)
	return doc
}

// pending crea un documento en PendingAuthorization con su XML firmado.
func (f *fixture) pending(t *testing.T) *entity.FiscalDocument {
	t.Helper()
	doc := f.draft(t)
	ref := tenantID + "/" + doc.ID + ".xml"
	f.artifacts[ref] = []byte("<factura/>")
	doc, err := f.documents.AttachSignedArtifact(context.Background(), tenantID, doc.ID, ref)
	require.NoError(t, err)
	return doc
}

// reset deja los contadores de llamadas en cero.
func (f *fixture) reset() {
	f.runner.runs = 0
	f.docs.writes = 0
	f.client.submitCalls = 0
	f.client.checkCalls = 0
}

// racingAuthority ejecuta onCall antes de responder, simulando otra escritura concurrente.
type racingAuthority struct {
	*fakeAuthority
	onCall func()
}

func (r *racingAuthority) CheckAuthorization(ctx context.Context, key string) (*fiscal.AuthorizationResponse, error) {
	if r.onCall != nil {
		r.onCall()
	}
	return r.fakeAuthority.CheckAuthorization(ctx, key)
}

func newPipelineWithClient(f *fixture, client billing.AuthorityClient) *billing.AuthorizationPipeline {
	return billing.NewAuthorizationPipeline(f.runner, f.docs, f.errs, f.artifacts, client, zerolog.Nop()).
		WithClock(func() time.Time { return fixedNow })
}

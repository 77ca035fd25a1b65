package billing_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/fiscal"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/memory"
	"github.com/jhoicas/Comprobantes-api/pkg/sri"
)

func TestAttachSignedArtifact_GeneraClaveDeAcceso(t *testing.T) {
	f := newFixture(t, 0)
	doc := f.pending(t)

	assert.Equal(t, entity.StatusPendingAuthorization, doc.Status)
	require.Len(t, doc.AccessKey, sri.AccessKeyLength)
	require.NoError(t, sri.ValidateAccessKey(doc.AccessKey))
	// fecha + tipo 01 + RUC + ambiente 1 + serie 001002 + secuencial 1
	assert.True(t, strings.HasPrefix(doc.AccessKey, "15102026"+"01"+testRUC+"1"+"001002"+"000000001"), doc.AccessKey)
	assert.Equal(t, billing.NumericCode(doc.ID), doc.AccessKey[39:47])
}

func TestAttachSignedArtifact_Precondiciones(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := f.draft(t)

	_, err := f.documents.AttachSignedArtifact(ctx, tenantID, doc.ID, "no/existe.xml")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	_, err = f.documents.AttachSignedArtifact(ctx, tenantID, doc.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	sent, err := f.documents.ChangeStatus(ctx, tenantID, doc.ID, entity.StatusSent)
	require.NoError(t, err)
	f.artifacts["x.xml"] = []byte("<x/>")
	_, err = f.documents.AttachSignedArtifact(ctx, tenantID, sent.ID, "x.xml")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestNumericCode_EstableYDeOchoDigitos(t *testing.T) {
	a := billing.NumericCode("doc-1")
	assert.Len(t, a, 8)
	assert.Equal(t, a, billing.NumericCode("doc-1"))
	assert.NotEqual(t, a, billing.NumericCode("doc-2"))
}

func TestDocCode(t *testing.T) {
	assert.Equal(t, sri.DocCodeInvoice, billing.DocCode(entity.DocumentTypeInvoice))
	assert.Equal(t, sri.DocCodeCreditNote, billing.DocCode(entity.DocumentTypeCreditNote))
	assert.Equal(t, sri.DocCodeDebitNote, billing.DocCode(entity.DocumentTypeDebitNote))
	assert.Equal(t, sri.DocCodeWithholding, billing.DocCode(entity.DocumentTypeWithholding))
}

func TestChangeStatus_Persistencia(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := f.draft(t)
	f.reset()

	_, err := f.documents.ChangeStatus(ctx, tenantID, doc.ID, entity.StatusPaid)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 0, f.docs.writes, "transición ilegal no escribe")
	stored, _ := f.docs.GetByID(ctx, doc.ID)
	assert.Equal(t, entity.StatusDraft, stored.Status)

	out, err := f.documents.ChangeStatus(ctx, tenantID, doc.ID, entity.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSent, out.Status)

	out, err = f.documents.ChangeStatus(ctx, tenantID, doc.ID, entity.StatusPaid)
	require.NoError(t, err)
	require.NotNil(t, out.PaidAt)
	assert.Equal(t, fixedNow, *out.PaidAt)

	_, err = f.documents.ChangeStatus(ctx, "tenant-2", doc.ID, entity.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChangeStatus_NoAlcanzaCicloFiscal(t *testing.T) {
	f := newFixture(t, 0)
	doc := f.pending(t)

	_, err := f.documents.ChangeStatus(context.Background(), tenantID, doc.ID, entity.StatusAuthorized)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestListAuthorityErrors(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := f.pending(t)
	f.client.checkResp = &fiscal.AuthorizationResponse{StatusPhrase: "NO AUTORIZADO", Errors: authorityErrs("035")}
	_, _ = f.pipeline.CheckAuthorization(ctx, tenantID, doc.ID)

	records, err := f.documents.ListAuthorityErrors(ctx, tenantID, doc.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "035", records[0].Code)

	_, err = f.documents.ListAuthorityErrors(ctx, "tenant-2", doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type fakeRIDE struct{ calls int }

func (g *fakeRIDE) GenerateRIDE(_ context.Context, doc *entity.FiscalDocument, _ *entity.Tenant, _ *entity.EmissionPoint) ([]byte, error) {
	g.calls++
	return []byte("%PDF-" + doc.AccessKey), nil
}

func TestDownloadRIDE(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	gen := &fakeRIDE{}
	uc := billing.NewRIDEUseCase(f.docs, memory.NewTenantRepository(f.store), f.points, gen)

	doc := f.pending(t)
	_, _, err := uc.DownloadRIDE(ctx, tenantID, doc.ID)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Equal(t, 0, gen.calls)

	f.client.checkResp = &fiscal.AuthorizationResponse{Authorized: true, AuthorizationCode: doc.AccessKey}
	_, err = f.pipeline.CheckAuthorization(ctx, tenantID, doc.ID)
	require.NoError(t, err)

	pdf, name, err := uc.DownloadRIDE(ctx, tenantID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "RIDE_001-002-000000001.pdf", name)
	assert.Contains(t, string(pdf), doc.AccessKey)
}

func TestListDocuments_PorEstadoYTenant(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.draft(t)
	f.draft(t)
	f.pending(t)

	drafts, err := f.documents.ListDocuments(ctx, tenantID, entity.StatusDraft, 10)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	limited, err := f.documents.ListDocuments(ctx, tenantID, entity.StatusDraft, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	pending, err := f.documents.ListDocuments(ctx, tenantID, entity.StatusPendingAuthorization, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Len(t, pending[0].AccessKey, sri.AccessKeyLength)

	other, err := f.documents.ListDocuments(ctx, "tenant-2", entity.StatusDraft, 10)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = f.documents.ListDocuments(ctx, tenantID, entity.DocumentStatus("Borrador"), 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

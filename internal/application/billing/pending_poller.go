package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/fiscal"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// DefaultPollConcurrency consultas simultáneas al SRI por corrida.
const DefaultPollConcurrency = 4

// PollSummary resultado de una corrida de CheckPending.
type PollSummary struct {
	Checked      int `json:"checked"`
	Authorized   int `json:"authorized"`
	StillPending int `json:"still_pending"`
	Rejected     int `json:"rejected"`
	Failed       int `json:"failed"`
}

// PendingPoller consulta la autorización de los comprobantes en PendingAuthorization de un tenant.
// Lo dispara el operador (CLI o cron externo); no agenda nada por sí mismo.
type PendingPoller struct {
	docRepo     repository.FiscalDocumentRepository
	pipeline    *AuthorizationPipeline
	concurrency int
	log         zerolog.Logger
}

// NewPendingPoller construye el poller. concurrency <= 0 usa DefaultPollConcurrency.
func NewPendingPoller(docRepo repository.FiscalDocumentRepository, pipeline *AuthorizationPipeline, concurrency int, log zerolog.Logger) *PendingPoller {
	if concurrency <= 0 {
		concurrency = DefaultPollConcurrency
	}
	return &PendingPoller{docRepo: docRepo, pipeline: pipeline, concurrency: concurrency, log: log}
}

// CheckPending ejecuta CheckAuthorization sobre hasta limit documentos pendientes.
// Un documento que falla no detiene a los demás; solo la cancelación del contexto corta la corrida.
func (p *PendingPoller) CheckPending(ctx context.Context, tenantID string, limit int) (PollSummary, error) {
	var sum PollSummary
	docs, err := p.docRepo.ListByStatus(ctx, tenantID, entity.StatusPendingAuthorization, limit)
	if err != nil {
		return sum, fmt.Errorf("listar pendientes: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.pipeline.CheckAuthorization(gctx, tenantID, doc.ID)

			mu.Lock()
			defer mu.Unlock()
			sum.Checked++
			switch {
			case err == nil && res.Verdict == fiscal.VerdictAuthorized:
				sum.Authorized++
			case err == nil:
				sum.StillPending++
			case errors.Is(err, domain.ErrAuthorityRejected):
				sum.Rejected++
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				sum.Failed++
				p.log.Warn().Err(err).Str("tenant_id", tenantID).Str("document_id", doc.ID).Msg("consulta de autorización fallida")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}
	p.log.Info().
		Str("tenant_id", tenantID).
		Int("checked", sum.Checked).
		Int("authorized", sum.Authorized).
		Int("still_pending", sum.StillPending).
		Int("rejected", sum.Rejected).
		Int("failed", sum.Failed).
		Msg("corrida de autorización finalizada")
	return sum, nil
}

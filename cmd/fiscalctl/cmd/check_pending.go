package cmd

import (
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/postgres"
	infrasri "github.com/jhoicas/Comprobantes-api/internal/infrastructure/sri"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/storage"
)

var (
	pendingTenant      string
	pendingLimit       int
	pendingConcurrency int
)

var checkPendingCmd = &cobra.Command{
	Use:   "check-pending",
	Short: "Consulta la autorización de los comprobantes en PendingAuthorization",
	Long: `Recorre los comprobantes pendientes del tenant y consulta el web service de
autorización del SRI con concurrencia acotada. Imprime un resumen JSON por stdout.

Pensado para ejecutarse desde un cron externo; el servicio no agenda reintentos.`,
	Args: cobra.NoArgs,
	RunE: runCheckPending,
}

func init() {
	rootCmd.AddCommand(checkPendingCmd)

	checkPendingCmd.Flags().StringVar(&pendingTenant, "tenant", "", "ID del tenant (obligatorio)")
	checkPendingCmd.Flags().IntVar(&pendingLimit, "limit", 100, "Máximo de comprobantes a consultar")
	checkPendingCmd.Flags().IntVar(&pendingConcurrency, "concurrency", billing.DefaultPollConcurrency, "Consultas simultáneas al SRI")
	_ = checkPendingCmd.MarkFlagRequired("tenant")
}

func runCheckPending(cmd *cobra.Command, _ []string) error {
	if pendingLimit <= 0 {
		return errors.New("--limit debe ser positivo")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	artifacts, closeArtifacts, err := storage.New(ctx, cfg.Artifact)
	if err != nil {
		return err
	}
	defer func() { _ = closeArtifacts() }()

	docRepo := postgres.NewFiscalDocumentRepository(pool)
	pipeline := billing.NewAuthorizationPipeline(
		postgres.NewTxRunner(pool), docRepo, postgres.NewAuthorityErrorRepository(pool),
		artifacts, infrasri.NewClient(cfg.SRI, log.Component("sri")), log.Component("pipeline"),
	)
	poller := billing.NewPendingPoller(docRepo, pipeline, pendingConcurrency, log.Component("poller"))

	sum, err := poller.CheckPending(ctx, pendingTenant, pendingLimit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}

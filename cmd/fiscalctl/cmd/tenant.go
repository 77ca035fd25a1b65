package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/postgres"
)

var (
	tenantName string
	tenantRUC  string
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Administración de contribuyentes emisores",
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Registra un tenant activo (valida el RUC)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		t, err := billing.NewTenantUseCase(postgres.NewTenantRepository(pool)).
			Create(ctx, dto.CreateTenantRequest{Name: tenantName, RUC: tenantRUC})
		if err != nil {
			return err
		}
		log.Info().Str("tenant_id", t.ID).Str("ruc", t.RUC).Msg("tenant creado")
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{"id": t.ID, "name": t.Name, "ruc": t.RUC, "status": t.Status})
	},
}

func init() {
	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantCreateCmd)

	tenantCreateCmd.Flags().StringVar(&tenantName, "name", "", "Razón social")
	tenantCreateCmd.Flags().StringVar(&tenantRUC, "ruc", "", "RUC de 13 dígitos")
	_ = tenantCreateCmd.MarkFlagRequired("name")
	_ = tenantCreateCmd.MarkFlagRequired("ruc")
}

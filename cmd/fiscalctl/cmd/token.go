package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/postgres"
	httpiface "github.com/jhoicas/Comprobantes-api/internal/interfaces/http"
	"github.com/jhoicas/Comprobantes-api/pkg/jwt"
)

var (
	tokenTenant  string
	tokenUser    string
	tokenRole    string
	tokenMinutes int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un JWT de operador para un tenant activo",
	Long: `Firma un token con JWT_SECRET para llamar a la API en nombre de un tenant.
Los roles válidos son admin, facturador y auditor.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.JWT.Secret == "" {
			return errors.New("JWT_SECRET no configurado")
		}
		switch tokenRole {
		case httpiface.RoleAdmin, httpiface.RoleBiller, httpiface.RoleAuditor:
		default:
			return fmt.Errorf("rol %q no soportado", tokenRole)
		}

		ctx := cmd.Context()
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		t, err := billing.NewTenantUseCase(postgres.NewTenantRepository(pool)).Get(ctx, tokenTenant)
		if err != nil {
			return err
		}
		if !t.IsActive() {
			return fmt.Errorf("tenant %s no está activo (%s)", t.ID, t.Status)
		}

		minutes := tokenMinutes
		if minutes <= 0 {
			minutes = cfg.JWT.Expiration
		}
		token, err := jwt.Generate(cfg.JWT.Secret, tokenUser, t.ID, tokenRole, cfg.JWT.Issuer, minutes)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenTenant, "tenant", "", "ID del tenant (obligatorio)")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "fiscalctl", "Sujeto del token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", httpiface.RoleBiller, "Rol: admin, facturador o auditor")
	tokenCmd.Flags().IntVar(&tokenMinutes, "minutes", 0, "Vigencia en minutos (por defecto JWT_EXPIRATION_MINUTES)")
	_ = tokenCmd.MarkFlagRequired("tenant")
}

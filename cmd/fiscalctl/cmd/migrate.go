package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down",
	Short:     "Aplica o revierte las migraciones embebidas",
	Long:      "up aplica todas las migraciones pendientes; down revierte solo la última.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(_ *cobra.Command, args []string) error {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), args[0]); err != nil {
			return err
		}
		log.Info().Str("direction", args[0]).Msg("migraciones aplicadas")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

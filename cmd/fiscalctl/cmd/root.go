// Package cmd contiene los comandos de fiscalctl, la herramienta de operación del servicio.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/Comprobantes-api/pkg/config"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

var (
	verbose bool

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fiscalctl",
	Short: "Operación del servicio de comprobantes electrónicos",
	Long: `fiscalctl agrupa las tareas de operación que no pasan por la API HTTP.

Lee la misma configuración que la API (.env, config.env y variables de entorno).

Ejemplos:
  # Aplicar el esquema
  fiscalctl migrate up

  # Registrar un emisor y obtener un token de facturador
  fiscalctl tenant create --name "Comercial Andina" --ruc 1790016919001
  fiscalctl token --tenant 6f1c... --role facturador

  # Consultar la autorización de los comprobantes pendientes de un tenant
  fiscalctl check-pending --tenant 6f1c... --limit 200 --concurrency 8`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := cfg.App.LogLevel
		if verbose {
			level = "debug"
		}
		log = logger.New(logger.Config{Env: cfg.App.Env, Level: level, Output: cmd.ErrOrStderr()})
		return nil
	},
}

// Execute ejecuta el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log en nivel debug")
}

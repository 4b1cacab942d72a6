// Command broker es el servidor de login multi-tenant y su CLI de operación.
//
//	broker serve                      levanta el HTTP server
//	broker migrate                    aplica migraciones SQL
//	broker app init                   crea la app MAIN si no existe
//	broker app create --name X        registra una app con su par de claves
//	broker app allow-redirect ...     agrega un redirect_uri al allowlist
//	broker app list                   lista las apps
//	broker keys gen-secretbox         genera SECRETBOX_MASTER_KEY
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dropDatabas3/hellobroker/internal/config"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	envFile    string
}

func main() {
	os.Exit(run())
}

func run() int {
	var gf globalFlags
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "broker",
		Short:         "Broker de login federado (Discord/Steam) con tokens por app",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// keys gen-secretbox no necesita config
			if cmd.Annotations["noconfig"] == "true" {
				return nil
			}
			if gf.envFile != "" {
				_ = godotenv.Load(gf.envFile)
			}
			c, err := loadConfig(gf.configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: c.App.Env, Level: c.Log.Level, ServiceName: "broker"})
			cfg = c
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
	}
	root.PersistentFlags().StringVar(&gf.configPath, "config", envOr("BROKER_CONFIG", ""), "ruta a config.yaml (vacío = solo entorno)")
	root.PersistentFlags().StringVar(&gf.envFile, "env-file", ".env", "ruta a .env (se ignora si no existe)")

	cfgFn := func() *config.Config { return cfg }
	root.AddCommand(
		newServeCmd(cfgFn),
		newMigrateCmd(cfgFn),
		newAppCmd(cfgFn),
		newKeysCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv(), nil
	}
	return config.Load(path)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

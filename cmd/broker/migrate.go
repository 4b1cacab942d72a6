package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dropDatabas3/hellobroker/internal/config"
	"github.com/dropDatabas3/hellobroker/internal/store/pg"
	migrations "github.com/dropDatabas3/hellobroker/migrations/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL pendientes (solo postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if c.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requires storage.driver=postgres (got %q)", c.Storage.Driver)
			}
			st, err := openStores(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer st.Close()
			return runMigrations(cmd.Context(), st.PG, cmd.OutOrStdout())
		},
	}
}

func runMigrations(ctx context.Context, s *pg.Store, out io.Writer) error {
	res, err := s.Migrate(ctx, migrations.FS, migrations.Dir)
	if err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	if len(res.Applied) == 0 {
		fmt.Fprintf(out, "✅ schema up to date (%d skipped)\n", len(res.Skipped))
		return nil
	}
	fmt.Fprintf(out, "✅ applied %v in %s\n", res.Applied, res.Duration)
	return nil
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dropDatabas3/hellobroker/internal/bootstrap"
	"github.com/dropDatabas3/hellobroker/internal/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAppCmd(cfg func() *config.Config) *cobra.Command {
	appCmd := &cobra.Command{
		Use:   "app",
		Short: "Administra tenant apps y sus redirect_uri",
	}

	// provision abre store + secretbox y ejecuta fn.
	provision := func(cmd *cobra.Command, fn func(bootstrap.AppProvisionConfig) error) error {
		c := cfg()
		st, err := openStores(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer st.Close()
		box, err := openBox(c)
		if err != nil {
			return err
		}
		return fn(bootstrap.AppProvisionConfig{Apps: st.Apps, Box: box, Out: cmd.OutOrStdout()})
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Crea la app " + bootstrap.MainAppName + " si todavía no existe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return provision(cmd, func(p bootstrap.AppProvisionConfig) error {
				_, _, err := bootstrap.EnsureMainApp(cmd.Context(), p)
				return err
			})
		},
	}

	var name string
	var redirects []string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Registra una app nueva con su par de claves",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name es requerido")
			}
			return provision(cmd, func(p bootstrap.AppProvisionConfig) error {
				_, err := bootstrap.CreateApp(cmd.Context(), p, name, redirects...)
				return err
			})
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "nombre único de la app")
	createCmd.Flags().StringSliceVar(&redirects, "allow-redirect", nil, "redirect_uri permitidos (exacto, o prefijo terminado en *)")

	var appID, pattern string
	allowCmd := &cobra.Command{
		Use:   "allow-redirect",
		Short: "Agrega un redirect_uri al allowlist de una app",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(appID)
			if err != nil {
				return fmt.Errorf("--app: %w", err)
			}
			if pattern == "" {
				return fmt.Errorf("--uri es requerido")
			}
			return provision(cmd, func(p bootstrap.AppProvisionConfig) error {
				return bootstrap.AllowRedirect(cmd.Context(), p, id, pattern)
			})
		},
	}
	allowCmd.Flags().StringVar(&appID, "app", "", "id de la app")
	allowCmd.Flags().StringVar(&pattern, "uri", "", "patrón (exacto, o prefijo terminado en *)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista las apps registradas",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			st, err := openStores(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer st.Close()
			apps, err := st.Apps.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tREDIRECTS\tCREATED")
			for _, a := range apps {
				uris, err := st.Apps.ListRedirectURIs(cmd.Context(), a.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.ID, a.Name, len(uris), a.CreatedAt.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}

	appCmd.AddCommand(initCmd, createCmd, allowCmd, listCmd)
	return appCmd
}

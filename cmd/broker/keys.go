package main

import (
	"fmt"

	"github.com/dropDatabas3/hellobroker/internal/security/secretbox"
	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Utilidades de claves",
	}
	genCmd := &cobra.Command{
		Use:         "gen-secretbox",
		Short:       "Genera un valor para SECRETBOX_MASTER_KEY (base64, 32 bytes)",
		Annotations: map[string]string{"noconfig": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secretbox.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	keysCmd.AddCommand(genCmd)
	return keysCmd
}

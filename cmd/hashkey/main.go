// Command hashkey prints the bcrypt hash to store in AUTH_API_KEY_HASH, or with
// --password the one for AUTH_ADMIN_PASSWORD_HASH.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/abduss/artifactdrive/internal/auth"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		cost     int
		password bool
	)

	cmd := &cobra.Command{
		Use:   "hashkey <secret>",
		Short: "Hash an API key for AUTH_API_KEY_HASH or a staff password for AUTH_ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashFn := auth.HashKey
			if password {
				hashFn = auth.HashPassword
			}
			hash, err := hashFn(args[0], cost)
			if err != nil {
				return fmt.Errorf("hash secret: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	cmd.Flags().BoolVar(&password, "password", false, "hash a staff password instead of an API key")
	return cmd
}

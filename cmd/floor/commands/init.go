package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RobiAdawiya/andalan-solution/internal/scaffold"
)

func newInitCmd() *cobra.Command {
	var (
		force bool
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter floor.yml and registry.yml",
		Long: `Create a starter configuration.

Creates:
  • floor.yml    - Bus, ledger, coordinator and ingester settings
  • registry.yml - Operators and the products each machine may run

Use --force to overwrite existing files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd)
			if err := scaffold.Initialize(dir, force, cmd.ErrOrStderr()); err != nil {
				return p.Error("initialization failed", err.Error(), nil)
			}
			scaffold.PrintSuccess(cmd.OutOrStdout())
			return nil
		},
	}

	// Note: -f is not used as a shorthand so it cannot be confused with a file flag
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing floor.yml and registry.yml")
	cmd.Flags().StringVar(&dir, "dir", ".", fmt.Sprintf("Directory to write %s and %s into", scaffold.ConfigFile, scaffold.RegistryFile))
	return cmd
}

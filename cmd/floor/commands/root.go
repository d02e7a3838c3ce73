package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RobiAdawiya/andalan-solution/internal/config"
	"github.com/RobiAdawiya/andalan-solution/internal/printer"
)

// globalOptions holds flags shared by every subcommand.
type globalOptions struct {
	configPath string
}

// loadConfig reads the configured floor.yml, falling back to defaults when it is absent.
func (o *globalOptions) loadConfig(p *printer.Printer) (*config.FloorConfig, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, p.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s or run 'floor init' to create a fresh one", o.configPath)},
		)
	}
	return cfg, nil
}

func newPrinter(cmd *cobra.Command) *printer.Printer {
	return printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// NewRootCmd builds the floor command tree.
func NewRootCmd(version, commit, date string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "floor",
		Short: "Floor - shop-floor operator and production tracking",
		Long: `Floor manages the shop-floor coordinator and telemetry ingester.

It scaffolds configuration, imports the operator and product registry
into the ledger, inspects recorded history and sends test scans over
the bus to check the coordinator's verdicts.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		// Prevent silent success when unknown flags are passed to root command
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "floor.yml", "Path to floor.yml")

	rootCmd.AddCommand(
		newInitCmd(),
		newRegistryCmd(opts),
		newHistoryCmd(opts),
		newCheckCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the floor version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "floor %s\n", rootCmd.Version)
			},
		},
	)

	return rootCmd
}

// Execute runs the floor CLI.
func Execute(version, commit, date string) error {
	return NewRootCmd(version, commit, date).Execute()
}

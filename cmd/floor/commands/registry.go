package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
	"github.com/RobiAdawiya/andalan-solution/internal/registry"
)

func newRegistryCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the operator and product registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Import operators and products from a registry YAML file",
		Long: `Import operators and products into the ledger.

Operators are upserted by id, so re-importing updates names and details.
Products already registered for a machine are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd)

			cfg, err := opts.loadConfig(p)
			if err != nil {
				return err
			}

			file, err := registry.Load(args[0])
			if err != nil {
				return p.Error("invalid registry", err.Error(), []string{"Run 'floor init' for an example registry.yml"})
			}

			store, err := ledger.Open(cfg.Ledger.Path)
			if err != nil {
				return p.ErrorWithContext("ledger unavailable", err.Error(), map[string]string{"path": cfg.Ledger.Path}, nil)
			}
			defer store.Close()

			res, err := registry.Import(context.Background(), store, file)
			if err != nil {
				return p.Error("import failed", err.Error(), nil)
			}

			p.Success("Imported %d operator(s) and %d product(s) into %s\n", res.Operators, res.Products, cfg.Ledger.Path)
			return nil
		},
	})

	return cmd
}

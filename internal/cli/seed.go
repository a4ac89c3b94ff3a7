package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmaddaus/issuetrack/internal/config"
	"github.com/jmaddaus/issuetrack/internal/seed"
	"github.com/jmaddaus/issuetrack/internal/store"
)

func newSeedCmd(gf *globalFlags) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert random sample issues into the local database",
		Long: `Insert random sample issues directly into the database named by the
config file. The daemon does not need to be running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return fmt.Errorf("-n must be positive")
			}

			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			if err := config.EnsureDataDir(cfg); err != nil {
				return err
			}
			st, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			created, err := seed.NewGenerator(cfg.Schema, nil).Create(cmd.Context(), st, count)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if gf.pretty {
				printPretty(w, created)
				return nil
			}
			printJSON(w, created)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", seed.DefaultCount, "number of issues to create")
	return cmd
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmaddaus/issuetrack/internal/config"
)

func newConfigCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
		RunE:  requireSubcommand,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(gf.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", gf.configPath)
			}
			if err := config.Save(config.DefaultConfig(), gf.configPath); err != nil {
				return err
			}
			printMessage(cmd.OutOrStdout(), "Wrote "+gf.configPath, gf.pretty)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), cfg)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

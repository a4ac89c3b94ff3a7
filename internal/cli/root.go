// Package cli implements the issuetrack command tree. Most commands talk to
// a running daemon over its JSON API; serve, seed and db work on the local
// database directly.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmaddaus/issuetrack/internal/config"
)

const defaultHost = "http://127.0.0.1:8043"

// globalFlags holds flags that are available to all subcommands.
type globalFlags struct {
	host       string
	configPath string
	pretty     bool
}

// newClient creates a daemon HTTP client from the global flags.
func (gf *globalFlags) newClient() *Client {
	return NewClient(gf.host)
}

// loadConfig reads the config file named by --config.
func (gf *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(gf.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute runs the command tree against args.
func Execute(args []string, version string) error {
	root := newRootCmd(version)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func newRootCmd(version string) *cobra.Command {
	gf := &globalFlags{}

	root := &cobra.Command{
		Use:           "issuetrack",
		Short:         "A small issue tracker with a web UI and a JSON API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	host := os.Getenv("ISSUETRACK_HOST")
	if host == "" {
		host = defaultHost
	}
	pf := root.PersistentFlags()
	pf.StringVar(&gf.host, "host", host, "daemon URL ($ISSUETRACK_HOST)")
	pf.StringVar(&gf.configPath, "config", config.DefaultPath(), "config file ($ISSUETRACK_CONFIG)")
	pf.BoolVar(&gf.pretty, "pretty", false, "use pretty-printed output instead of JSON")

	root.AddCommand(
		newServeCmd(gf),
		newStatusCmd(gf),
		newListCmd(gf),
		newShowCmd(gf),
		newCreateCmd(gf),
		newUpdateCmd(gf),
		newDeleteCmd(gf),
		newBulkCmd(gf),
		newSeedCmd(gf),
		newConfigCmd(gf),
		newDBCmd(),
		newVersionCmd(version),
	)
	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "issuetrack version %s\n", version)
		},
	}
}

// requireSubcommand is the RunE of commands that only group subcommands.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown %s subcommand: %s", cmd.Name(), args[0])
	}
	return cmd.Help()
}

// parseID parses a positive issue number. A leading '#' and zero padding
// ("#007") are accepted.
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue id %q", s)
	}
	return id, nil
}

// parseIDs parses every argument with parseID.
func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// optional returns a pointer to the flag's value when the flag was set on
// the command line, nil otherwise.
func optional(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

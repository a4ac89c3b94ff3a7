package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmaddaus/issuetrack/internal/store"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database migration tools (version, check, downgrade)",
		RunE:  requireSubcommand,
		Example: `  issuetrack db version ~/.issuetrack/issues.db
  issuetrack db check ~/.issuetrack/issues.db
  issuetrack db downgrade ~/.issuetrack/issues.db 1`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "version <db-path>",
			Short: "Show current DB schema version",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDBVersion(cmd.OutOrStdout(), args[0])
			},
		},
		&cobra.Command{
			Use:   "check <db-path>",
			Short: "Check if DB is compatible with this binary",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDBCheck(cmd.OutOrStdout(), args[0])
			},
		},
		&cobra.Command{
			Use:   "downgrade <db-path> <version>",
			Short: "Downgrade DB to target version",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				target, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid version number: %s", args[1])
				}
				return runDBDowngrade(cmd.OutOrStdout(), args[0], target)
			},
		},
	)
	return cmd
}

// readVersion opens dbPath without migrating it and returns its schema
// version.
func readVersion(w io.Writer, dbPath string) (int, error) {
	db, err := store.OpenRawDB(dbPath)
	if err != nil {
		return 0, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	version, err := store.ReadDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}

	fmt.Fprintf(w, "database: %s\n", dbPath)
	fmt.Fprintf(w, "schema version: %d\n", version)
	fmt.Fprintf(w, "binary supports: %d\n", store.DBSchemaVersion)
	return version, nil
}

func runDBVersion(w io.Writer, dbPath string) error {
	_, err := readVersion(w, dbPath)
	return err
}

func runDBCheck(w io.Writer, dbPath string) error {
	version, err := readVersion(w, dbPath)
	if err != nil {
		return err
	}

	if version > store.DBSchemaVersion {
		return fmt.Errorf("INCOMPATIBLE: database is newer than this binary.\nRun: issuetrack db downgrade %s %d", dbPath, store.DBSchemaVersion)
	}

	fmt.Fprintf(w, "\nOK: database is compatible.\n")
	return nil
}

func runDBDowngrade(w io.Writer, dbPath string, target int) error {
	db, err := store.OpenRawDB(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	current, err := store.ReadDBVersion(db)
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	fmt.Fprintf(w, "database: %s\n", dbPath)
	fmt.Fprintf(w, "current version: %d\n", current)
	fmt.Fprintf(w, "target version: %d\n", target)

	if target >= current {
		return fmt.Errorf("target version %d must be less than current version %d", target, current)
	}

	if err := store.DowngradeDB(db, current, target); err != nil {
		return fmt.Errorf("downgrade: %w", err)
	}

	fmt.Fprintf(w, "downgraded: %d -> %d\n", current, target)
	return nil
}

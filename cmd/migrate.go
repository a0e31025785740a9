package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dbcopy/config"
	"dbcopy/internal"
	"dbcopy/mysql"
)

// Replaced in tests.
var (
	connect          = mysql.Connect
	recreateDatabase = mysql.RecreateDatabase
	selectTables     = func(tables []string) ([]string, error) {
		return internal.NewTableSelector(tables).Select()
	}
)

var migrateCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Migrate tables from the source database to the target",
	Args:          cobra.NoArgs,
	RunE:          runMigrate,
	SilenceUsage:  true,
	SilenceErrors: true,
}

type migrateOptions struct {
	configPath  string
	tables      []string
	interactive bool
	schemaOnly  bool
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	var opts migrateOptions
	opts.configPath, _ = cmd.Flags().GetString("config")
	opts.tables, _ = cmd.Flags().GetStringArray("table")
	opts.interactive, _ = cmd.Flags().GetBool("interactive")
	opts.schemaOnly, _ = cmd.Flags().GetBool("schema-only")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if verbose {
		internal.SetLogLevel("debug")
	} else {
		internal.SetLogLevel("error")
	}

	if opts.interactive && len(opts.tables) > 0 {
		return fmt.Errorf("--interactive and --table cannot be used together")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	report, err := migrate(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
	if err != nil {
		return formatError(err)
	}

	printReport(cmd.OutOrStdout(), report)
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("❌ %d of %d table(s) failed", len(failed), len(report.Outcomes))
	}
	return nil
}

func migrate(ctx context.Context, out io.Writer, cfg *config.Config, opts migrateOptions) (*mysql.Report, error) {
	internal.Logger.Info("Starting migration", "tables", opts.tables, "schemaOnly", opts.schemaOnly)

	source, err := connect(ctx, cfg.Source.DSN, cfg.Source.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source: %w", err)
	}
	defer source.Close()

	if cfg.CreateTargetDatabase {
		err := internal.WithSpinner(out, "Recreating target database", func() error {
			charset, collation, err := mysql.DatabaseCharset(ctx, source)
			if err != nil {
				return err
			}
			return recreateDatabase(ctx, cfg.Target.DSN, charset, collation)
		})
		if err != nil {
			return nil, err
		}
	}

	target, err := connect(ctx, cfg.Target.DSN, cfg.Target.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target: %w", err)
	}
	defer target.Close()

	tables, err := resolveTables(ctx, out, source, opts)
	if err != nil {
		return nil, err
	}

	m := mysql.NewMigrator(source, target, cfg)
	m.Concurrency = cfg.Concurrency
	m.SchemaOnly = opts.schemaOnly

	if internal.VerboseMode {
		return m.Migrate(ctx, tables)
	}

	spinner := internal.NewSpinner(out, progressMessage(0, len(tables)))
	finished := 0
	m.OnOutcome = func(o mysql.Outcome) {
		finished++
		spinner.UpdateMessage(progressMessage(finished, len(tables)))
	}
	spinner.Start()
	report, err := m.Migrate(ctx, tables)
	spinner.Stop()
	return report, err
}

// resolveTables returns the tables named on the command line, the ones
// picked interactively, or every base table of the source.
func resolveTables(ctx context.Context, out io.Writer, source *sql.DB, opts migrateOptions) ([]string, error) {
	if len(opts.tables) > 0 {
		return opts.tables, nil
	}

	var tables []string
	err := internal.WithSpinner(out, "Listing source tables", func() error {
		var err error
		tables, err = mysql.ListTables(ctx, source)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get table list: %w", err)
	}

	if opts.interactive {
		return selectTables(tables)
	}
	return tables, nil
}

func progressMessage(finished, total int) string {
	return fmt.Sprintf("Migrating tables (%d/%d done)", finished, total)
}

func printReport(w io.Writer, report *mysql.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tSTATUS\tROWS\tDURATION\tDETAIL")
	for _, o := range report.Outcomes {
		status, detail := "ok", o.Outfile
		switch {
		case o.IsPartial():
			status, detail = "partial", o.Cause()
		case !o.OK():
			status, detail = "failed", o.Cause()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.Table, status, humanize.Comma(o.Rows), o.Duration.Round(time.Millisecond), detail)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d table(s), %s row(s) in %s\n",
		len(report.Outcomes), humanize.Comma(report.Rows()), report.Duration.Round(time.Millisecond))
}

func formatError(err error) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") {
		return fmt.Errorf("❌ Cannot connect to MySQL server. Please check your connection settings.")
	}

	if strings.Contains(errStr, "Access denied") {
		return fmt.Errorf("❌ MySQL authentication failed. Please check your username and password.")
	}

	if strings.Contains(errStr, "Unknown database") {
		return fmt.Errorf("❌ Database does not exist. Please check your database name.")
	}

	return fmt.Errorf("❌ %s", errStr)
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().String("config", "", "Path to the config file (default ~/.dbcopy/config.yaml)")
	migrateCmd.Flags().StringArray("table", nil, "Table to migrate, may be repeated (default all tables)")
	migrateCmd.Flags().Bool("interactive", false, "Pick the tables to migrate from a list")
	migrateCmd.Flags().Bool("schema-only", false, "Copy table definitions without data")
	migrateCmd.Flags().Bool("verbose", false, "Enable verbose logging")
}

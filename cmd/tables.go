package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dbcopy/config"
	"dbcopy/internal"
	"dbcopy/mysql"
)

var tablesCmd = &cobra.Command{
	Use:           "tables",
	Short:         "List the base tables of the source database",
	Args:          cobra.NoArgs,
	RunE:          runTables,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func runTables(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		internal.SetLogLevel("debug")
	} else {
		internal.SetLogLevel("error")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	source, err := connect(ctx, cfg.Source.DSN, 1)
	if err != nil {
		return formatError(fmt.Errorf("failed to connect to source: %w", err))
	}
	defer source.Close()

	tables, err := mysql.ListTables(ctx, source)
	if err != nil {
		return formatError(err)
	}

	out := cmd.OutOrStdout()
	for _, table := range tables {
		tc := cfg.Table(table)
		switch {
		case tc.SkipData:
			fmt.Fprintf(out, "%s (schema only)\n", table)
		case len(tc.Transformers) > 0:
			fmt.Fprintf(out, "%s (%d transformer(s))\n", table, len(tc.Transformers))
		default:
			fmt.Fprintln(out, table)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(tablesCmd)

	tablesCmd.Flags().String("config", "", "Path to the config file (default ~/.dbcopy/config.yaml)")
	tablesCmd.Flags().Bool("verbose", false, "Enable verbose logging")
}

// Command caterya scores models on bias, interpretability, robustness and
// transparency and reduces the result to a single open score.
//
// Evaluate a synthetic dataset:
//
//	caterya evaluate --synthetic 500 --groups 3
//
// Serve the HTTP and gRPC APIs:
//
//	caterya serve --config caterya.yaml
//
// Environment variables CATERYA_DB, CATERYA_AGGREGATION, CATERYA_HTTP_ADDR,
// CATERYA_GRPC_ADDR, CATERYA_LOG_LEVEL and CATERYA_MODEL_ADDR override the
// configuration file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
)

// #region main
func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region root
// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	output     string
	logLevel   string
	logFormat  string
	dbPath     string
	noStore    bool
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "caterya",
		Short:        "Score models across the four caterya pillars",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration file")
	pf.StringVarP(&opts.output, "output", "o", formatJSON, "output format: json, yaml or table")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	pf.StringVar(&opts.dbPath, "db", "", "run history database path")
	pf.BoolVar(&opts.noStore, "no-store", false, "do not open the run history database")

	rootCmd.AddCommand(
		buildEvaluateCmd(opts),
		buildMetricCmd(opts),
		buildMetricsCmd(opts),
		buildRunsCmd(opts),
		buildReplayCmd(opts),
		buildServeCmd(opts),
	)
	return rootCmd
}

// #endregion root

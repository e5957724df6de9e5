package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/caterya/internal/logging"
	"github.com/danielpatrickdp/caterya/internal/results"
	"github.com/danielpatrickdp/caterya/internal/store"
)

func buildRunsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run history",
	}
	cmd.AddCommand(buildRunsListCmd(root), buildRunsShowCmd(root), buildRunsDeleteCmd(root))
	return cmd
}

// #region list-mode
func buildRunsListCmd(root *rootOptions) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			runs, err := st.ListRuns(cmd.Context(), last)
			if err != nil {
				return err
			}
			if root.output == formatTable {
				return printRunTable(cmd.OutOrStdout(), runs)
			}
			return writeOutput(cmd.OutOrStdout(), root.output, runs)
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent runs (0 for all)")
	return cmd
}

func printRunTable(w io.Writer, runs []store.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs found")
		return err
	}
	fmt.Fprintf(w, "%-36s  %-16s  %10s  %7s  %8s  %s\n",
		"Run", "Aggregation", "Open Score", "Metrics", "Failures", "Time")
	fmt.Fprintf(w, "%-36s+-%-16s+-%10s+-%7s+-%8s+-%s\n",
		"------------------------------------", "----------------", "----------", "-------", "--------", "--------------------")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-16s  %10.2f  %7d  %8d  %s\n",
			r.RunID, r.Aggregation, r.OpenScore, r.MetricCount, r.FailureCount,
			r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

// runDetail is a stored run with its per-metric outcome rows.
type runDetail struct {
	Results  results.Canonical      `json:"results" yaml:"results"`
	Outcomes []logging.OutcomeEntry `json:"outcomes" yaml:"outcomes"`
}

func buildRunsShowCmd(root *rootOptions) *cobra.Command {
	var outcomes bool
	cmd := &cobra.Command{
		Use:   "show [RUN_ID]",
		Short: "Print a stored results document (latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()
			st, err := a.requireStore()
			if err != nil {
				return err
			}

			var id string
			if len(args) == 1 {
				id = args[0]
			} else if id, err = st.Latest(cmd.Context()); err != nil {
				return err
			}

			res, err := st.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !outcomes {
				return writeOutput(cmd.OutOrStdout(), root.output, res.Canonical())
			}
			rows, err := st.Outcomes(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), root.output, runDetail{Results: res.Canonical(), Outcomes: rows})
		},
	}
	cmd.Flags().BoolVar(&outcomes, "outcomes", false, "include the per-metric outcome rows")
	return cmd
}

func buildRunsDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete RUN_ID",
		Short: "Delete a stored run and its outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			if err := st.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.logger.Info("run deleted", "run_id", args[0])
			return nil
		},
	}
}

// #endregion detail-mode

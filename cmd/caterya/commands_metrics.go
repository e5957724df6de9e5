package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/caterya/internal/registry"
)

// metricRow is one line of the metric catalog.
type metricRow struct {
	Name        string  `json:"name" yaml:"name"`
	Pillar      string  `json:"pillar" yaml:"pillar"`
	Min         float64 `json:"min" yaml:"min"`
	Max         float64 `json:"max" yaml:"max"`
	Description string  `json:"description" yaml:"description"`
}

func buildMetricsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Inspect the metric catalog",
	}
	cmd.AddCommand(buildMetricsListCmd(root), buildMetricsInfoCmd(root))
	return cmd
}

func buildMetricsListCmd(root *rootOptions) *cobra.Command {
	var pillar string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := metricCatalog(registry.Default(), registry.DefaultPillars(), pillar)
			if err != nil {
				return err
			}
			if root.output == formatTable {
				return printMetricTable(cmd.OutOrStdout(), rows)
			}
			return writeOutput(cmd.OutOrStdout(), root.output, rows)
		},
	}
	cmd.Flags().StringVar(&pillar, "pillar", "", "only list metrics of this pillar")
	return cmd
}

func buildMetricsInfoCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info NAME",
		Short: "Show bounds and description of one metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := metricCatalog(registry.Default(), registry.DefaultPillars(), "")
			if err != nil {
				return err
			}
			for _, r := range rows {
				if r.Name == args[0] {
					return writeOutput(cmd.OutOrStdout(), root.output, r)
				}
			}
			return &registry.UnknownMetricError{Name: args[0], Known: registry.Default().Names()}
		},
	}
}

// metricCatalog lists every registered metric with its pillar, optionally
// restricted to one pillar.
func metricCatalog(reg *registry.Registry, pillars *registry.Pillars, only string) ([]metricRow, error) {
	if only != "" {
		if _, err := pillars.MetricsFor(only); err != nil {
			return nil, err
		}
	}
	pillarOf := make(map[string]string)
	for _, p := range pillars.Catalog() {
		for _, m := range p.Metrics {
			pillarOf[m] = p.Name
		}
	}
	var rows []metricRow
	for _, name := range reg.Names() {
		if only != "" && pillarOf[name] != only {
			continue
		}
		info, err := reg.Info(name)
		if err != nil {
			return nil, err
		}
		rows = append(rows, metricRow{
			Name:        name,
			Pillar:      pillarOf[name],
			Min:         info.Bounds.Min,
			Max:         info.Bounds.Max,
			Description: info.Description,
		})
	}
	return rows, nil
}

func printMetricTable(w io.Writer, rows []metricRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tPILLAR\tBOUNDS\tDESCRIPTION")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t[%g, %g]\t%s\n", r.Name, r.Pillar, r.Min, r.Max, r.Description)
	}
	return tw.Flush()
}

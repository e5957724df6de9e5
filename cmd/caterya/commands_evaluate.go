package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/caterya/internal/dataset"
	"github.com/danielpatrickdp/caterya/internal/evaluator"
	"github.com/danielpatrickdp/caterya/internal/metric"
)

// =============================================================================
// Dataset flags
// =============================================================================

// datasetFlags select a dataset file or a synthetic spec.
type datasetFlags struct {
	path string
	spec dataset.Spec
}

func (d *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.path, "dataset", "", "dataset file (JSON or YAML)")
	cmd.Flags().IntVar(&d.spec.Samples, "synthetic", 0, "generate a synthetic dataset with this many samples")
	cmd.Flags().IntVar(&d.spec.Groups, "groups", 2, "synthetic: number of groups")
	cmd.Flags().Uint64Var(&d.spec.Seed, "seed", 42, "synthetic: random seed")
	cmd.Flags().Float64Var(&d.spec.Disparity, "disparity", 0, "synthetic: prediction penalty for group 0")
	cmd.Flags().BoolVar(&d.spec.OmitPredictions, "omit-predictions", false, "synthetic: leave predictions to the model")
	cmd.MarkFlagsMutuallyExclusive("dataset", "synthetic")
	cmd.MarkFlagsOneRequired("dataset", "synthetic")
}

func (d *datasetFlags) load() (*metric.Dataset, error) {
	if d.path != "" {
		return dataset.Load(d.path)
	}
	if err := d.spec.Validate(); err != nil {
		return nil, err
	}
	return dataset.Generate(d.spec), nil
}

// parseOptions turns key=value flags into metric options. Numeric values
// become float64; everything else stays a string.
func parseOptions(raw map[string]string) metric.Options {
	if len(raw) == 0 {
		return nil
	}
	opts := make(metric.Options, len(raw))
	for k, v := range raw {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts[k] = f
			continue
		}
		opts[k] = v
	}
	return opts
}

// =============================================================================
// evaluate
// =============================================================================

func buildEvaluateCmd(root *rootOptions) *cobra.Command {
	var (
		data        datasetFlags
		pillars     []string
		metrics     []string
		aggregation string
		savePath    string
		options     map[string]string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the pillar metrics and print the results document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := evaluator.Request{Metrics: metrics, Options: parseOptions(options)}
			if cmd.Flags().Changed("pillar") {
				req.Pillars = pillars
			}
			return runEvaluate(cmd, root, &data, req, aggregation, savePath)
		},
	}
	data.register(cmd)
	cmd.Flags().StringSliceVar(&pillars, "pillar", nil, "pillar to evaluate (repeatable; default all)")
	cmd.Flags().StringSliceVar(&metrics, "metric", nil, "exact metric list to run instead of the pillar grouping (repeatable)")
	cmd.Flags().StringVar(&aggregation, "aggregation", "", "open score reducer: arithmetic_mean, geometric_mean or harmonic_mean")
	cmd.Flags().StringVar(&savePath, "save", "", "also write the results document to this file")
	cmd.Flags().StringToStringVar(&options, "option", nil, "metric option key=value (repeatable)")
	return cmd
}

func runEvaluate(cmd *cobra.Command, root *rootOptions, data *datasetFlags, req evaluator.Request, aggregation, savePath string) error {
	ds, err := data.load()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), root)
	if err != nil {
		return err
	}
	defer a.Close()

	ev, err := a.withAggregation(aggregation)
	if err != nil {
		return err
	}
	res, err := ev.Evaluate(cmd.Context(), a.model, ds, req)
	if err != nil {
		return err
	}
	if savePath != "" {
		if err := res.Save(savePath); err != nil {
			return err
		}
		a.logger.Info("results saved", "path", savePath)
	}
	return writeOutput(cmd.OutOrStdout(), root.output, res.Canonical())
}

// =============================================================================
// metric
// =============================================================================

// metricResult is the output of the single metric command.
type metricResult struct {
	Metric         string  `json:"metric" yaml:"metric"`
	Score          float64 `json:"score" yaml:"score"`
	Interpretation string  `json:"interpretation" yaml:"interpretation"`
}

func buildMetricCmd(root *rootOptions) *cobra.Command {
	var (
		data    datasetFlags
		options map[string]string
	)
	cmd := &cobra.Command{
		Use:   "metric NAME",
		Short: "Compute a single metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetric(cmd, root, &data, args[0], parseOptions(options))
		},
	}
	data.register(cmd)
	cmd.Flags().StringToStringVar(&options, "option", nil, "metric option key=value (repeatable)")
	return cmd
}

func runMetric(cmd *cobra.Command, root *rootOptions, data *datasetFlags, name string, opts metric.Options) error {
	ds, err := data.load()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), root)
	if err != nil {
		return err
	}
	defer a.Close()

	score, err := a.eval.EvaluateMetric(cmd.Context(), name, a.model, ds, opts)
	if err != nil {
		return fmt.Errorf("metric %s: %w", name, err)
	}
	m, err := a.eval.Registry().Resolve(name)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), root.output, metricResult{
		Metric:         name,
		Score:          score,
		Interpretation: m.Interpret(score),
	})
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/caterya/internal/replay"
)

// replayReport is the output of the replay command.
type replayReport struct {
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Summary     replay.Summary  `json:"summary" yaml:"summary"`
	Cases       []replayCaseRow `json:"cases" yaml:"cases"`
}

type replayCaseRow struct {
	CaseID    string  `json:"case_id" yaml:"case_id"`
	Outcome   string  `json:"outcome" yaml:"outcome"`
	Reason    string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	OpenScore float64 `json:"open_score" yaml:"open_score"`
}

func buildReplayCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay FIXTURE",
		Short: "Replay fixture cases and check their expected scores",
		Long: `Replay evaluates every case in a JSON fixture and compares the open,
pillar and metric scores against the expected ranges. The command fails when
any case fails or errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, root, args[0])
		},
	}
}

func runReplay(cmd *cobra.Command, root *rootOptions, path string) error {
	fixture, err := replay.LoadFixture(path)
	if err != nil {
		return err
	}
	cfg, err := fixture.Config.ToReplayConfig()
	if err != nil {
		return err
	}
	cases, err := fixture.ToCases()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), root)
	if err != nil {
		return err
	}
	defer a.Close()

	got := replay.Replay(cmd.Context(), a.model, cases, cfg, a.evalOpts...)
	report := replayReport{Description: fixture.Description, Summary: replay.Summarize(got)}
	for _, r := range got {
		row := replayCaseRow{CaseID: r.CaseID, Outcome: r.Outcome, Reason: r.Reason}
		if r.Results != nil {
			row.OpenScore = r.Results.OpenScore()
		}
		report.Cases = append(report.Cases, row)
	}

	if root.output == formatTable {
		printReplayTable(cmd.OutOrStdout(), report)
	} else if err := writeOutput(cmd.OutOrStdout(), root.output, report); err != nil {
		return err
	}
	if s := report.Summary; s.Failures+s.Errors > 0 {
		return fmt.Errorf("replay: %d failed, %d errored of %d cases", s.Failures, s.Errors, s.TotalCases)
	}
	return nil
}

func printReplayTable(w io.Writer, report replayReport) {
	for _, r := range report.Cases {
		fmt.Fprintf(w, "[%s] %-6s open=%.2f %s\n", r.CaseID, r.Outcome, r.OpenScore, r.Reason)
	}
	s := report.Summary
	fmt.Fprintf(w, "\nSummary: %d cases, %d passed, %d failed, %d errors, mean open score %.2f\n",
		s.TotalCases, s.Passes, s.Failures, s.Errors, s.MeanOpenScore)
}

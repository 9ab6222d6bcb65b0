package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/findit/internal/config"
	"github.com/kirillkom/findit/internal/core/domain"
	"github.com/kirillkom/findit/internal/core/matching"
	"github.com/kirillkom/findit/internal/infrastructure/export/xlsx"
)

type scoreOptions struct {
	sourcePath     string
	candidatesPath string
	configPath     string
	xlsxPath       string
	asJSON         bool
}

func newScoreCmd() *cobra.Command {
	opts := scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank a candidate pool against one item",
		Long: `Rank a candidate pool against one item using the matching engine.

Examples:
  matchctl score --source lost.json --candidates found.json
  matchctl score --source lost.json --candidates found.json --config weights.yaml --xlsx report.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.sourcePath, "source", "s", "", "JSON file with the source item")
	cmd.Flags().StringVarP(&opts.candidatesPath, "candidates", "c", "", "JSON file with an array of candidate items")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML file overriding matching weights and floors")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "also write an xlsx report to this path")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("candidates")
	return cmd
}

func runScore(cmd *cobra.Command, opts scoreOptions) error {
	var source domain.Item
	if err := readJSON(opts.sourcePath, &source); err != nil {
		return err
	}
	var candidates []domain.Item
	if err := readJSON(opts.candidatesPath, &candidates); err != nil {
		return err
	}

	cfg, err := config.LoadMatchingConfig(opts.configPath, matching.DefaultConfig())
	if err != nil {
		return err
	}
	engine, err := matching.NewEngine(cfg, slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err != nil {
		return err
	}

	outcome, err := engine.Run(cmd.Context(), source, candidates)
	if err != nil {
		return fmt.Errorf("score candidates: %w", err)
	}

	if opts.xlsxPath != "" {
		report := xlsx.Report{Source: source, Candidates: candidates, Matches: outcome.Matches}
		if err := xlsx.WriteFile(opts.xlsxPath, report); err != nil {
			return err
		}
	}

	if opts.asJSON {
		return writeScoreJSON(cmd.OutOrStdout(), source, outcome)
	}
	return writeScoreTable(cmd.OutOrStdout(), outcome)
}

func readJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeScoreJSON(w io.Writer, source domain.Item, outcome domain.MatchOutcome) error {
	type scoredMatch struct {
		domain.MatchResult
		Band matching.Band `json:"band"`
	}
	matches := make([]scoredMatch, 0, len(outcome.Matches))
	for _, m := range outcome.Matches {
		matches = append(matches, scoredMatch{MatchResult: m, Band: matching.ConfidenceBand(m.Confidence)})
	}

	out := struct {
		SourceID  string        `json:"source_id"`
		Evaluated int           `json:"evaluated"`
		Skipped   int           `json:"skipped"`
		Failed    int           `json:"failed"`
		Matches   []scoredMatch `json:"matches"`
	}{
		SourceID:  source.ID,
		Evaluated: outcome.Evaluated,
		Skipped:   outcome.Skipped,
		Failed:    outcome.Failed,
		Matches:   matches,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeScoreTable(w io.Writer, outcome domain.MatchOutcome) error {
	if len(outcome.Matches) == 0 {
		_, err := fmt.Fprintf(w, "no matches (evaluated %d, skipped %d)\n", outcome.Evaluated, outcome.Skipped)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tITEM\tCONFIDENCE\tBAND\tREASONS")
	for idx, m := range outcome.Matches {
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\t%s\n",
			idx+1, m.ItemID, m.Confidence, matching.ConfidenceBand(m.Confidence), strings.Join(m.Reasons, "; "))
	}
	return tw.Flush()
}

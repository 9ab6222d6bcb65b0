package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/findit/internal/config"
	"github.com/kirillkom/findit/internal/core/matching"
)

func newBandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "band <confidence>",
		Short: "Print the display band of a confidence in [0,1]",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confidence, err := strconv.ParseFloat(args[0], 64)
			if err != nil || math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
				return fmt.Errorf("confidence must be a number in [0,1], got %q", args[0])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), matching.ConfidenceBand(confidence))
			return err
		},
	}
}

func newConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective matching configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadMatchingConfig(path, matching.DefaultConfig())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode matching config: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "YAML file overriding matching weights and floors")
	return cmd
}

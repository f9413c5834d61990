package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// badgeSweepCmd is the daily scheduled entry point: expire and re-grant
// dynamic badges across the whole provider population.
var badgeSweepCmd = &cobra.Command{
	Use:   "badge-sweep",
	Short: "Run the daily dynamic-badge sweep over all providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Sweeper.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("badge sweep %s: %d pages, %d processed, %d expired, %d granted, %d errors\n",
			run.Status, run.Pages, run.Processed, run.Expired, run.Granted, run.Errors)
		return nil
	},
}

// scoreRecomputeCmd is the weekly scheduled entry point: recompute every
// provider's score unconditionally.
var scoreRecomputeCmd = &cobra.Command{
	Use:   "score-recompute",
	Short: "Recompute credibility scores for all providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Recomputer.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("score recompute %s: %d pages, %d processed, %d errors\n",
			run.Status, run.Pages, run.Processed, run.Errors)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(badgeSweepCmd)
	rootCmd.AddCommand(scoreRecomputeCmd)
}

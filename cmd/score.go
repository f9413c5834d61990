package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/axservices/credibility-engine/internal/badge"
)

var (
	scoreSave  bool
	badgeForce bool
)

// scoreCmd computes a single provider's score on demand, optionally
// persisting it.
var scoreCmd = &cobra.Command{
	Use:   "score <provider-id>",
	Short: "Compute (and optionally persist) one provider's credibility score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		id := args[0]
		if scoreSave {
			p, err := env.Service.RecomputeScore(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("%s: score %d (saved)\n", id, p.CredibilityScore)
			return nil
		}

		score, err := env.Service.Score(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("%s: score %d\n", id, score)
		return nil
	},
}

// assignBadgesCmd is the manual single-provider variant of the daily
// sweep, for support and debugging.
var assignBadgesCmd = &cobra.Command{
	Use:   "assign-badges <provider-id>",
	Short: "Run one badge lifecycle pass for a single provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		id := args[0]
		d, err := env.Service.AssignBadges(cmd.Context(), id, badge.ScopeAll, badgeForce)
		if err != nil {
			return err
		}

		if !d.HasChanges && !badgeForce {
			fmt.Printf("%s: no changes\n", id)
			return nil
		}
		fmt.Printf("%s: granted [%s], expired [%s], badges [%s]\n",
			id,
			strings.Join(d.Granted, ", "),
			strings.Join(d.Expired, ", "),
			strings.Join(d.BadgeIDs, ", "),
		)
		return nil
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreSave, "save", false, "persist the recomputed score")
	assignBadgesCmd.Flags().BoolVar(&badgeForce, "force", false, "write even when nothing changed")
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(assignBadgesCmd)
}

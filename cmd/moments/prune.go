package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/moments"
	"github.com/aretw0/moments/pkg/core"
	"github.com/aretw0/moments/pkg/recurrence"
)

var (
	pruneBefore string
	pruneDryRun bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove one-off moments that are over",
	Long: `Prune deletes every non-repeating moment dated before --before (default:
today). Repeating moments are never pruned.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cutoff := recurrence.Midnight(time.Now())
		if pruneBefore != "" {
			var err error
			if cutoff, err = recurrence.ParseDate(pruneBefore); err != nil {
				return fmt.Errorf("invalid --before: %w", err)
			}
		}

		svc, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		filter := core.Filter{
			Frequencies: []moments.RepeatFrequency{moments.RepeatNone},
			DateTo:      recurrence.FormatDate(cutoff.AddDate(0, 0, -1)),
		}

		if pruneDryRun {
			list, err := svc.List(cmd.Context(), core.WithFilter(filter))
			if err != nil {
				return err
			}
			for _, e := range list {
				printEntity(cmd.OutOrStdout(), e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d moments would be pruned\n", len(list))
			return nil
		}

		n, err := svc.Prune(cmd.Context(), filter)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d moments pruned\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().StringVar(&pruneBefore, "before", "", "Prune moments dated before this day (YYYY-MM-DD)")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Only list what would be pruned")
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOrphansCommand() *cobra.Command {
	var celebrityRef string
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List entities with no episode connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			celebrityID, err := a.resolveCelebrity(cmd, celebrityRef)
			if err != nil {
				return err
			}
			orphans, err := a.links.FindOrphans(cmd.Context(), celebrityID)
			if err != nil {
				return err
			}
			for _, orphan := range orphans {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s  %s\n", orphan.EntityID, orphan.EntityType, orphan.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d orphans\n", len(orphans))
			return nil
		},
	}
	cmd.Flags().StringVar(&celebrityRef, "celebrity", "", "Celebrity ID or slug (required)")
	_ = cmd.MarkFlagRequired("celebrity")
	return cmd
}

func newDedupCommand() *cobra.Command {
	var (
		celebrityRef string
		apply        bool
	)
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Plan or apply duplicate episode merges",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			celebrityID, err := a.resolveCelebrity(cmd, celebrityRef)
			if err != nil {
				return err
			}
			plans, err := a.dedup.FindDuplicateEpisodes(cmd.Context(), celebrityID)
			if err != nil {
				return err
			}
			for _, plan := range plans {
				fmt.Fprintf(cmd.OutOrStdout(), "keep %s  merge %d  (%s)\n",
					plan.KeepID, len(plan.MergeIDs), plan.Reason)
				if apply {
					if err := a.dedup.MergeEpisodes(cmd.Context(), plan); err != nil {
						return err
					}
				}
			}
			if !apply && len(plans) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "rerun with --apply to merge")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&celebrityRef, "celebrity", "", "Celebrity ID or slug (required)")
	cmd.Flags().BoolVar(&apply, "apply", false, "Execute the planned merges")
	_ = cmd.MarkFlagRequired("celebrity")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"
)

func newReportCommand() *cobra.Command {
	var celebrityRef string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the latest sync run report for a celebrity",
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
			run, err := a.sync.LatestRun(cmd.Context(), celebrityID)
			if err != nil {
				return err
			}
			printRun(cmd, run)
			return nil
		},
	}
	cmd.Flags().StringVar(&celebrityRef, "celebrity", "", "Celebrity ID or slug (required)")
	_ = cmd.MarkFlagRequired("celebrity")
	return cmd
}

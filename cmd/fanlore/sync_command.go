package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fanloremedia/fanlore/internal/catalog/service"
	"github.com/fanloremedia/fanlore/pkg/models"
)

func newSyncCommand() *cobra.Command {
	var (
		celebrityRef    string
		dryRun          bool
		repairOrphans   bool
		mergeDuplicates bool
		purgeShortForm  bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one batch sync for a celebrity",
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

			run, err := a.sync.Run(cmd.Context(), service.RunOptions{
				CelebrityID:     celebrityID,
				DryRun:          dryRun,
				RepairOrphans:   repairOrphans,
				MergeDuplicates: mergeDuplicates,
				PurgeShortForm:  purgeShortForm,
			})
			if run != nil {
				printRun(cmd, run)
			}
			if err != nil {
				return err
			}
			if run.Failed > 0 {
				return fmt.Errorf("sync completed with %d unresolved errors", run.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&celebrityRef, "celebrity", "", "Celebrity ID or slug (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify only; write nothing")
	cmd.Flags().BoolVar(&repairOrphans, "repair-orphans", false, "Attach orphans whose parent this run identified")
	cmd.Flags().BoolVar(&mergeDuplicates, "merge-duplicates", false, "Merge duplicate episodes after persisting")
	cmd.Flags().BoolVar(&purgeShortForm, "purge-short-form", false, "Remove short-form noise episodes")
	_ = cmd.MarkFlagRequired("celebrity")
	return cmd
}

func printRun(cmd *cobra.Command, run *models.SyncRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s  state=%s  dry_run=%v\n", run.ID, run.State, run.DryRun)
	fmt.Fprintf(out, "  created=%d updated=%d linked=%d skipped=%d failed=%d\n",
		run.Created, run.Updated, run.Linked, run.Skipped, run.Failed)
	for _, runErr := range run.Errors {
		if runErr.EntityID != "" {
			fmt.Fprintf(out, "  [%s] %s: %s\n", runErr.Type, runErr.EntityID, runErr.Reason)
		} else {
			fmt.Fprintf(out, "  [%s] %s\n", runErr.Type, runErr.Reason)
		}
	}
}

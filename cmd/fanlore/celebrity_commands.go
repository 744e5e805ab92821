package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fanloremedia/fanlore/pkg/models"
)

func newCelebrityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "celebrity",
		Short: "Manage the tracked celebrity list",
	}
	cmd.AddCommand(
		newCelebrityAddCommand(),
		newCelebrityListCommand(),
		newCelebrityImportCommand(),
	)
	return cmd
}

func newCelebrityAddCommand() *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a celebrity to track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			celebrity := &models.Celebrity{Name: args[0], Slug: slug}
			if err := a.repo.CreateCelebrity(cmd.Context(), celebrity); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", celebrity.ID, celebrity.Slug, celebrity.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "Explicit slug (derived from the name when empty)")
	return cmd
}

func newCelebrityListCommand() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked celebrities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var status *models.CelebrityStatus
			if activeOnly {
				active := models.CelebrityStatusActive
				status = &active
			}
			celebrities, err := a.repo.ListCelebrities(cmd.Context(), status)
			if err != nil {
				return err
			}
			for _, c := range celebrities {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s  %-24s  %s\n", c.ID, c.Status, c.Slug, c.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only active celebrities")
	return cmd
}

// seedEntry is one record in a celebrity seed file.
type seedEntry struct {
	Name   string `json:"name"`
	Slug   string `json:"slug,omitempty"`
	Status string `json:"status,omitempty"`
}

func newCelebrityImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import celebrities from a JSON seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading seed file: %w", err)
			}
			var entries []seedEntry
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("parsing seed file: %w", err)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			imported := 0
			for _, entry := range entries {
				celebrity := &models.Celebrity{
					Name:   entry.Name,
					Slug:   entry.Slug,
					Status: models.CelebrityStatus(entry.Status),
				}
				if err := a.repo.CreateCelebrity(cmd.Context(), celebrity); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping %q: %v\n", entry.Name, err)
					continue
				}
				imported++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d celebrities\n", imported, len(entries))
			return nil
		},
	}
	return cmd
}

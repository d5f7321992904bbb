package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alle-ai/alle-go/internal/app"
	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/infrastructure/cli/helpers"
)

// NewStorageCommand creates the storage command with all subcommands
func NewStorageCommand(container *app.Container) *cobra.Command {
	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "Show storage usage and cleanup preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStorageStats(cmd.OutOrStdout(), cmd.ErrOrStderr(), container)
		},
	}

	storageCmd.AddCommand(
		newStorageStatsCommand(container),
		newStoragePrefsCommand(container),
	)

	return storageCmd
}

// newStorageStatsCommand creates the 'storage stats' subcommand
func newStorageStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how much of the storage quota is used",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStorageStats(cmd.OutOrStdout(), cmd.ErrOrStderr(), container)
		},
	}
}

// newStoragePrefsCommand creates the 'storage prefs' subcommand
func newStoragePrefsCommand(container *app.Container) *cobra.Command {
	var (
		autoCleanup      bool
		keepDays         int
		warningThreshold int
	)

	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or update cleanup preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.PreferencesPatch
			if cmd.Flags().Changed("auto-cleanup") {
				patch.AutoCleanup = &autoCleanup
			}
			if cmd.Flags().Changed("keep-days") {
				patch.KeepDays = &keepDays
			}
			if cmd.Flags().Changed("warning-threshold") {
				patch.WarningThreshold = &warningThreshold
			}
			return updateStoragePreferences(cmd.Context(), cmd.OutOrStdout(), container, patch)
		},
	}

	cmd.Flags().BoolVar(&autoCleanup, "auto-cleanup", domain.DefaultAutoCleanup, "Remove old entries automatically near the quota")
	cmd.Flags().IntVar(&keepDays, "keep-days", domain.DefaultKeepDays, "Age in days after which automatic cleanup removes entries")
	cmd.Flags().IntVar(&warningThreshold, "warning-threshold", domain.DefaultWarningThreshold, "Usage percentage that triggers the storage warning")
	return cmd
}

// showStorageStats prints usage of history and the video queue
func showStorageStats(out, errOut io.Writer, container *app.Container) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	stats := manager.UpdateStorageStats()
	history := manager.History()
	queue := manager.VideoQueue()

	fmt.Fprintf(out, "Used: %s of %s (%s MB of %s MB)\n",
		helpers.FormatBytes(stats.Used),
		helpers.FormatBytes(stats.Total),
		stats.UsedMB(),
		stats.TotalMB())
	fmt.Fprintf(out, "%s %s\n", helpers.UsageBar(stats.Percentage), stats.PercentageString())
	fmt.Fprintf(out, "History entries: %d (%d failed)\n", len(history), helpers.CountFailedRequests(history))
	fmt.Fprintf(out, "Queued videos: %d\n", len(queue))
	for _, count := range helpers.CountByStatus(queue) {
		fmt.Fprintf(out, "  %s: %d\n", count.Status, count.Count)
	}

	helpers.PrintStorageWarning(errOut, container)
	return nil
}

// updateStoragePreferences applies the flags that were set and prints the result
func updateStoragePreferences(ctx context.Context, out io.Writer, container *app.Container, patch domain.PreferencesPatch) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	prefs := manager.Preferences()
	if !patch.IsEmpty() {
		prefs, err = manager.UpdateStoragePreferences(ctx, patch)
		if err != nil {
			return fmt.Errorf("failed to update storage preferences: %w", err)
		}
	}

	displayPreferences(out, prefs)
	return nil
}

func displayPreferences(out io.Writer, prefs domain.StoragePreferences) {
	fmt.Fprintf(out, "Auto cleanup: %t\n", prefs.AutoCleanup)
	fmt.Fprintf(out, "Keep days: %d\n", prefs.KeepDays)
	fmt.Fprintf(out, "Warning threshold: %d%%\n", prefs.WarningThreshold)
}

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alle-ai/alle-go/internal/app"
	"github.com/alle-ai/alle-go/internal/application/workbench"
	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/infrastructure/cli/helpers"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage recorded API calls",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistoryShowCommand(container),
		newHistoryViewCommand(container),
		newHistoryClearCommand(container),
		newHistoryCleanupCommand(container),
		newHistoryCleanupFailedCommand(container),
		newHistoryExportCommand(container),
		newHistoryInspectCommand(),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent history entries, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.OutOrStdout(), container, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show (0 for all)")
	return cmd
}

// newHistoryShowCommand creates the 'history show' subcommand
func newHistoryShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a history entry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryEntry(cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newHistoryViewCommand creates the 'history view' subcommand
func newHistoryViewCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "view <id>",
		Short: "Restore a history entry's response into the workbench",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return viewHistoryEntry(cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newHistoryClearCommand creates the 'history clear' subcommand
func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history and queued videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearHistory(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newHistoryCleanupCommand creates the 'history cleanup' subcommand
func newHistoryCleanupCommand(container *app.Container) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove history entries older than N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf(ErrInvalidDays)
			}
			return cleanupOldHistory(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), container, days)
		},
	}

	cmd.Flags().IntVar(&days, "days", domain.DefaultKeepDays, "Remove entries older than this many days")
	return cmd
}

// newHistoryCleanupFailedCommand creates the 'history cleanup-failed' subcommand
func newHistoryCleanupFailedCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-failed",
		Short: "Remove failed requests and failed videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cleanupFailedRequests(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), container)
		},
	}
}

// newHistoryExportCommand creates the 'history export' subcommand
func newHistoryExportCommand(container *app.Container) *cobra.Command {
	var (
		dir        string
		compress   bool
		clearAfter bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history and the video queue to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportHistory(cmd.Context(), cmd.OutOrStdout(), container, dir, compress, clearAfter)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", DefaultExportDir, "Directory to write the export into")
	cmd.Flags().BoolVar(&compress, "compress", false, "Compress the export with zstd")
	cmd.Flags().BoolVar(&clearAfter, "clear", false, "Clear history after a successful export")
	return cmd
}

// newHistoryInspectCommand creates the 'history inspect' subcommand
func newHistoryInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectExport(cmd.OutOrStdout(), args[0])
		},
	}
}

// listHistoryEntries lists recent history entries
func listHistoryEntries(out io.Writer, container *app.Container, limit int) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	entries := manager.History()
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	active := manager.ActiveHistoryID()
	for _, entry := range entries {
		helpers.WriteHistoryLine(out, entry, entry.ID == active)
	}

	return nil
}

// showHistoryEntry prints the stored entry verbatim
func showHistoryEntry(out io.Writer, container *app.Container, id string) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	entry, ok := manager.HistoryItem(id)
	if !ok {
		return fmt.Errorf("history entry %s: %w", id, domain.ErrNotFound)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	fmt.Fprintln(out, string(data))
	return nil
}

// viewHistoryEntry makes an entry the displayed response
func viewHistoryEntry(out io.Writer, container *app.Container, id string) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	if manager.IsRestoreDisabled(id) {
		fmt.Fprintln(out, MsgAlreadyDisplayed)
		return nil
	}

	entry, err := manager.ViewHistoryItemByID(id)
	if err != nil {
		return fmt.Errorf("failed to view history entry: %w", err)
	}

	fmt.Fprintf(out, "%s (%s)\n", entry.Name, entry.Timestamp.Format(domain.TimestampFormat))
	displayed := manager.Displayed()
	helpers.WriteResponse(out, displayed.Response, displayed.Stats)
	return nil
}

// clearHistory empties history and the video queue after confirmation
func clearHistory(ctx context.Context, out io.Writer, container *app.Container) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	ok, err := helpers.ConfirmAction(container, "Delete all history and queued videos?")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, MsgCancelled)
		return nil
	}

	if err := manager.ClearHistory(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintln(out, MsgHistoryCleared)
	return nil
}

// cleanupOldHistory removes entries older than the given age
func cleanupOldHistory(ctx context.Context, out, errOut io.Writer, container *app.Container, days int) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	removed, err := manager.CleanupOldHistory(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to clean up history: %w", err)
	}

	fmt.Fprintf(out, "Removed %d entries older than %d days.\n", removed, days)
	helpers.PrintStorageWarning(errOut, container)
	return nil
}

// cleanupFailedRequests removes failed calls and failed videos
func cleanupFailedRequests(ctx context.Context, out, errOut io.Writer, container *app.Container) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	requests, videos, err := manager.CleanupFailedRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean up failed requests: %w", err)
	}

	fmt.Fprintf(out, "Removed %d failed requests and %d failed videos.\n", requests, videos)
	helpers.PrintStorageWarning(errOut, container)
	return nil
}

// exportHistory writes the export file, optionally clearing history afterwards
func exportHistory(ctx context.Context, out io.Writer, container *app.Container, dir string, compress, clearAfter bool) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	if !clearAfter {
		path, err := manager.ExportToDir(dir, compress)
		if err != nil {
			return fmt.Errorf("failed to export history: %w", err)
		}
		fmt.Fprintf(out, "Exported history to %s\n", path)
		return nil
	}

	ok, err := helpers.ConfirmAction(container, "Export and then delete all history?")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, MsgCancelled)
		return nil
	}

	path, err := manager.ExportAndClear(ctx, dir, compress)
	if err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	fmt.Fprintf(out, "Exported history to %s\n", path)
	fmt.Fprintln(out, MsgHistoryCleared)
	return nil
}

// inspectExport prints the header of an export file
func inspectExport(out io.Writer, path string) error {
	snapshot, err := workbench.ReadExport(path)
	if err != nil {
		return fmt.Errorf("failed to read export %s: %w", path, err)
	}

	fmt.Fprintf(out, "Exported: %s\n", snapshot.ExportDate)
	fmt.Fprintf(out, "History items: %d\n", snapshot.TotalHistoryItems)
	fmt.Fprintf(out, "Video items: %d\n", snapshot.TotalVideoItems)
	fmt.Fprintf(out, "Storage: %s of %s (%s)\n",
		snapshot.StorageStats.Used,
		snapshot.StorageStats.Total,
		snapshot.StorageStats.Percentage)
	return nil
}

// getWorkbench extracts the workbench manager from the container
func getWorkbench(container *app.Container) (*workbench.Manager, error) {
	if container.Workbench == nil {
		return nil, errors.New(ErrWorkbenchUnavailable)
	}
	return container.Workbench, nil
}

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alle-ai/alle-go/internal/app"
	"github.com/alle-ai/alle-go/internal/application/video"
	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/infrastructure/cli/helpers"
)

// NewVideoCommand creates the video command with all subcommands
func NewVideoCommand(container *app.Container) *cobra.Command {
	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Generate videos and manage the generation queue",
	}

	videoCmd.AddCommand(
		newVideoGenerateCommand(container),
		newVideoListCommand(container),
		newVideoStatusCommand(container),
		newVideoRetryCommand(container),
		newVideoRemoveCommand(container),
		newVideoClearCommand(container),
	)

	return videoCmd
}

// newVideoGenerateCommand creates the 'video generate' subcommand
func newVideoGenerateCommand(container *app.Container) *cobra.Command {
	var (
		prompt       string
		models       []string
		conversation string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Submit a video generation job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(prompt) == "" {
				return errors.New(ErrPromptRequired)
			}
			if len(models) == 0 {
				models = container.Config.GetDefaultModels()
			}
			req := video.GenerateRequest{
				ConversationID: conversation,
				Prompt:         prompt,
				Models:         models,
			}
			return generateVideo(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), container, req)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Text prompt for the video")
	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "Model to generate with (repeatable, default from config)")
	cmd.Flags().StringVar(&conversation, "conversation", "", "Conversation id to attach the job to")
	return cmd
}

// newVideoListCommand creates the 'video list' subcommand
func newVideoListCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued videos, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listVideos(cmd.OutOrStdout(), container)
		},
	}
}

// newVideoStatusCommand creates the 'video status' subcommand
func newVideoStatusCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Print a queued video as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showVideoStatus(cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newVideoRetryCommand creates the 'video retry' subcommand
func newVideoRetryCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Resubmit a failed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return retryVideo(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newVideoRemoveCommand creates the 'video remove' subcommand
func newVideoRemoveCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a video from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeVideo(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newVideoClearCommand creates the 'video clear' subcommand
func newVideoClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every video from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearVideos(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// generateVideo submits the job and prints the queue id
func generateVideo(ctx context.Context, out, errOut io.Writer, container *app.Container, req video.GenerateRequest) error {
	service, err := getVideoService(container)
	if err != nil {
		return err
	}

	item, err := service.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to submit video: %w", err)
	}

	fmt.Fprintf(out, "Queued video %s (job %s)\n", item.ID, item.RequestID)
	fmt.Fprintln(out, "Run 'alle video watch' to follow its progress.")
	helpers.PrintStorageWarning(errOut, container)
	return nil
}

// listVideos prints the queue
func listVideos(out io.Writer, container *app.Container) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	queue := manager.VideoQueue()
	if len(queue) == 0 {
		fmt.Fprintln(out, MsgNoVideosQueued)
		return nil
	}

	for _, item := range queue {
		helpers.WriteVideoLine(out, item)
	}
	return nil
}

// showVideoStatus prints one queue item
func showVideoStatus(out io.Writer, container *app.Container, id string) error {
	manager, err := getWorkbench(container)
	if err != nil {
		return err
	}

	item, ok := manager.VideoItem(id)
	if !ok {
		return fmt.Errorf("video item %s: %w", id, domain.ErrNotFound)
	}

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal video item: %w", err)
	}

	fmt.Fprintln(out, string(data))
	return nil
}

// retryVideo resubmits a failed item
func retryVideo(ctx context.Context, out io.Writer, container *app.Container, id string) error {
	service, err := getVideoService(container)
	if err != nil {
		return err
	}

	item, err := service.Retry(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotRetryable) {
			return fmt.Errorf("video %s cannot be retried (%s, attempt %d of %d): %w",
				id, item.ErrorType, item.RetryAttempts, item.MaxRetries, err)
		}
		return fmt.Errorf("failed to retry video: %w", err)
	}

	fmt.Fprintf(out, "Resubmitted video %s as job %s (attempt %d of %d)\n",
		item.ID, item.RequestID, item.RetryAttempts, item.MaxRetries)
	return nil
}

// removeVideo drops one item
func removeVideo(ctx context.Context, out io.Writer, container *app.Container, id string) error {
	service, err := getVideoService(container)
	if err != nil {
		return err
	}

	if err := service.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to remove video: %w", err)
	}

	fmt.Fprintf(out, "Removed video %s\n", id)
	return nil
}

// clearVideos empties the queue after confirmation
func clearVideos(ctx context.Context, out io.Writer, container *app.Container) error {
	service, err := getVideoService(container)
	if err != nil {
		return err
	}

	ok, err := helpers.ConfirmAction(container, "Remove every queued video?")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, MsgCancelled)
		return nil
	}

	removed, err := service.Clear(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear video queue: %w", err)
	}

	fmt.Fprintf(out, "Removed %d videos.\n", removed)
	return nil
}

// getVideoService extracts the video service from the container
func getVideoService(container *app.Container) (*video.Service, error) {
	if container.VideoService == nil {
		return nil, errors.New(ErrVideoServiceUnavailable)
	}
	return container.VideoService, nil
}

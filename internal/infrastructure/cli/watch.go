package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alle-ai/alle-go/internal/app"
	"github.com/alle-ai/alle-go/internal/domain"
)

const progressRefreshInterval = 250 * time.Millisecond

func newVideoWatchCommand(container *app.Container) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll processing videos until they finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return watchVideos(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), container)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop watching after this long (0 waits until every video finishes)")
	return cmd
}

// watchVideos runs the poller next to a progress display and prints the final
// state of every item that was processing when the watch started.
func watchVideos(ctx context.Context, out, errOut io.Writer, container *app.Container) error {
	if container.Workbench == nil {
		return errors.New("workbench unavailable")
	}

	pending := container.Workbench.PendingVideos()
	if len(pending) == 0 {
		fmt.Fprintln(out, "No videos are processing.")
		return nil
	}
	ids := make([]string, 0, len(pending))
	for _, item := range pending {
		ids = append(ids, item.ID)
	}

	poller := container.NewPoller()
	spinner := startSpinner(errOut, fmt.Sprintf("waiting for %d video(s)", len(ids)))

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return poller.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(progressRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if generating := poller.Generating(); len(generating) > 0 {
					spinner.SetMessage(fmt.Sprintf("%d of %d video(s) still generating", len(generating), len(ids)))
				}
			}
		}
	})

	err := g.Wait()
	spinner.Stop()

	final := make([]domain.VideoQueueItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := container.Workbench.VideoItem(id); ok {
			final = append(final, item)
		}
	}
	RenderVideoProgress(out, final)

	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintln(out, "Stopped watching; remaining videos keep processing on the server.")
		return nil
	}
	return err
}

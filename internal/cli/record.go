package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"liverec/internal/bootstrap"
	"liverec/internal/config"
	"liverec/internal/domain"
	"liverec/internal/output"
	"liverec/internal/usecase"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var sourceURL, outPath, outDir, title string

	cmd := &cobra.Command{
		Use:   "record <live-id>...",
		Short: "Record live streams until interrupted",
		Long:  "Record one or more live streams in the foreground. Ctrl+C stops every recording gracefully; a second Ctrl+C exits immediately.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && (sourceURL != "" || outPath != "" || title != "") {
				return errors.New("--url, --out and --title require a single live id")
			}

			cfg := *deps.Config
			if outDir != "" {
				cfg.Session.OutputDir = outDir
			}
			if sourceURL != "" {
				cfg.Source.Platform = config.PlatformDirect
			}
			if outPath == "" {
				if err := os.MkdirAll(cfg.Session.OutputDir, 0o755); err != nil {
					return fmt.Errorf("creating output directory: %w", err)
				}
			}

			formatter := output.NewFormatter(cmd.OutOrStdout())
			sink := &failureTracker{Formatter: formatter}
			services := bootstrap.Assemble(cfg, sink)
			controller := services.Controller

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			started := time.Now()
			for _, id := range args {
				target := domain.RecordingTarget{
					StreamID:        id,
					SourceURL:       sourceURL,
					DestinationPath: outPath,
					DisplayTitle:    title,
				}
				if target.DestinationPath == "" {
					target.DestinationPath = domain.DefaultDestination(cfg.Session.OutputDir, target.Title(), id)
				}
				if err := controller.StartRecording(ctx, target); err != nil {
					_ = controller.StopAll(context.Background())
					return err
				}
			}

			err := waitRecordings(ctx, stop, controller, args, formatter)
			formatter.RecordingStopped(fmt.Sprintf("%d recording(s)", len(args)), time.Since(started))
			if err != nil {
				return err
			}
			return sink.err()
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "Record this source URL directly instead of resolving the live id")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination file")
	cmd.Flags().StringVarP(&outDir, "dir", "d", "", "Output directory for default file names")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Display title used in the default file name")

	return cmd
}

// failureTracker prints like its Formatter and remembers failed sessions.
type failureTracker struct {
	*output.Formatter

	mu     sync.Mutex
	failed []string
}

func (t *failureTracker) SessionStateChanged(info domain.SessionInfo) {
	t.Formatter.SessionStateChanged(info)
	if info.State != domain.SessionStateFailed {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = append(t.failed, info.StreamID)
}

func (t *failureTracker) err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.failed) == 0 {
		return nil
	}
	return fmt.Errorf("recording failed: %s", strings.Join(t.failed, ", "))
}

// waitRecordings blocks until every recording ends on its own or ctx is
// cancelled, in which case all of them are stopped.
func waitRecordings(ctx context.Context, stopSignals func(), controller *usecase.Controller, ids []string, formatter *output.Formatter) error {
	var group errgroup.Group
	for _, id := range ids {
		group.Go(func() error {
			return controller.Await(context.Background(), id)
		})
	}

	finished := make(chan error, 1)
	go func() { finished <- group.Wait() }()

	select {
	case err := <-finished:
		return err
	case <-ctx.Done():
		stopSignals()
		formatter.Info("Stopping recordings...")
		if err := controller.StopAll(context.Background()); err != nil {
			return err
		}
		return <-finished
	}
}

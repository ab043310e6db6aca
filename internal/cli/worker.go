package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"liverec/internal/encoder"
	"liverec/internal/logging"
	"liverec/internal/worker"
)

// NewWorkerCmd runs a single recording worker speaking newline-delimited
// JSON commands on stdin and writing its terminal event to stdout.
func NewWorkerCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Run one recording worker over stdio",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config
			logger := logging.WithComponent(logging.New(logging.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Writer: cmd.ErrOrStderr(),
			}), "worker")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			invoker := encoder.NewFFMPEG(encoder.Options{
				LogLevel:       cfg.Encoder.LogLevel,
				ExtraInputArgs: cfg.Encoder.ExtraInputArgs,
				Logger:         logger,
			})
			w := worker.New(ctx, invoker, logger)
			return worker.ServeStdio(ctx, w, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		},
	}
}

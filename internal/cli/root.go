package cli

import (
	"github.com/spf13/cobra"

	"liverec/internal/config"
	"liverec/internal/source/pocket48"
)

type Dependencies struct {
	Config *config.Config
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "liverec",
		Short:         "Record live streams to disk with ffmpeg",
		Long:          "Resolve live streams and record them to FLV files by stream copy.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&deps.Config.Log.Level, "log-level", deps.Config.Log.Level, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&deps.Config.Encoder.Path, "ffmpeg", deps.Config.Encoder.Path, "Path to the ffmpeg executable")

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewResolveCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewWorkerCmd(deps))

	return rootCmd
}

func newPocket48Client(cfg *config.Config) *pocket48.Client {
	return pocket48.NewClient(pocket48.Config{
		APIBaseURL: cfg.Source.APIBaseURL,
		UserAgent:  cfg.Source.UserAgent,
		Timeout:    cfg.Source.Timeout,
	})
}

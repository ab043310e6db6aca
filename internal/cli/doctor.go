package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"liverec/internal/config"
	"liverec/internal/encoder"
	"liverec/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(cmd.OutOrStdout())
			cfg := deps.Config
			ok := true

			if path, err := encoder.NewLocator(cfg.Encoder.Path).Locate(); err != nil {
				f.SetupCheck("ffmpeg", false, err.Error()+". Install ffmpeg or set LIVEREC_FFMPEG")
				ok = false
			} else {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				version, err := encoder.Probe(ctx, path)
				cancel()
				if err != nil {
					f.SetupCheck("ffmpeg", false, err.Error())
					ok = false
				} else {
					f.SetupCheck("ffmpeg", true, version)
				}
			}

			if cfg.File != "" {
				f.SetupCheck("Config file", true, cfg.File)
			} else {
				f.SetupCheck("Config file", true, "none, using defaults")
			}

			switch cfg.Source.Platform {
			case config.PlatformPocket48:
				f.SetupCheck("Source", true, "pocket48 ("+apiBaseLabel(cfg)+")")
			default:
				f.SetupCheck("Source", true, "direct URLs")
			}

			if err := os.MkdirAll(cfg.Session.OutputDir, 0o755); err != nil {
				f.SetupCheck("Output directory", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Output directory", true, cfg.Session.OutputDir)
			}

			if ok {
				f.Success("All prerequisites met. Ready to record!")
			} else {
				f.Warning("Some prerequisites are missing.")
			}
			return nil
		},
	}
}

func apiBaseLabel(cfg *config.Config) string {
	if cfg.Source.APIBaseURL != "" {
		return cfg.Source.APIBaseURL
	}
	return "default API"
}

package bootstrap

import (
	"log/slog"

	"liverec/internal/config"
	"liverec/internal/encoder"
	"liverec/internal/logging"
	"liverec/internal/ports"
	"liverec/internal/source/pocket48"
	"liverec/internal/usecase"
	"liverec/internal/worker"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.Controller
	Locator    *encoder.Locator
	// Pocket48 is nil unless the pocket48 platform is configured.
	Pocket48 *pocket48.Client
	Config   config.Config
	Logger   *slog.Logger
}

// Build loads configuration and wires all backend dependencies.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return Assemble(cfg, eventSink), nil
}

// Assemble wires the runtime graph for an already loaded configuration.
func Assemble(cfg config.Config, eventSink ports.EventSink) Services {
	logger := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	invoker := encoder.NewFFMPEG(encoder.Options{
		LogLevel:       cfg.Encoder.LogLevel,
		ExtraInputArgs: cfg.Encoder.ExtraInputArgs,
		Logger:         logger,
	})
	locator := encoder.NewLocator(cfg.Encoder.Path)

	services := Services{Locator: locator, Config: cfg, Logger: logger}

	// A nil interface, not a typed nil, keeps the controller on direct URLs.
	var resolver ports.SourceResolver
	if cfg.Source.Platform == config.PlatformPocket48 {
		services.Pocket48 = pocket48.NewClient(pocket48.Config{
			APIBaseURL: cfg.Source.APIBaseURL,
			UserAgent:  cfg.Source.UserAgent,
			Timeout:    cfg.Source.Timeout,
		})
		resolver = services.Pocket48
	}

	services.Controller = usecase.NewController(
		locator,
		resolver,
		worker.NewFactory(invoker, logger),
		eventSink,
		usecase.Config{StopTimeout: cfg.Session.StopTimeout},
		logger,
	)
	return services
}

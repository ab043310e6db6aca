package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	PlatformPocket48 = "pocket48"
	PlatformDirect   = "direct"

	defaultStopTimeout   = 15 * time.Second
	defaultSourceTimeout = 10 * time.Second
)

// Config stores runtime configuration for the recorder.
type Config struct {
	Encoder EncoderConfig `toml:"encoder"`
	Source  SourceConfig  `toml:"source"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`

	// File is the config file that was read, empty when none was found.
	File string `toml:"-"`
}

type EncoderConfig struct {
	// Path of the ffmpeg executable. Empty searches PATH.
	Path           string   `toml:"path"`
	LogLevel       string   `toml:"log_level"`
	ExtraInputArgs []string `toml:"extra_input_args"`
}

type SourceConfig struct {
	Platform   string        `toml:"platform"`
	APIBaseURL string        `toml:"api_base_url"`
	Timeout    time.Duration `toml:"timeout"`
	UserAgent  string        `toml:"user_agent"`
}

type SessionConfig struct {
	StopTimeout time.Duration `toml:"stop_timeout"`
	OutputDir   string        `toml:"output_dir"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load resolves configuration from .env, the optional config file,
// LIVEREC_* environment variables and sensible defaults, in increasing
// priority.
func Load() (Config, error) {
	return load(".env")
}

func load(dotenvPath string) (Config, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := defaults(home)

	path, explicit := configPath(home)
	if err := decodeFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			path = ""
		} else {
			return Config{}, err
		}
	}
	cfg.File = path

	applyEnv(&cfg)
	return normalize(cfg)
}

func defaults(home string) Config {
	return Config{
		Encoder: EncoderConfig{
			LogLevel: "warning",
		},
		Source: SourceConfig{
			Platform: PlatformPocket48,
			Timeout:  defaultSourceTimeout,
		},
		Session: SessionConfig{
			StopTimeout: defaultStopTimeout,
			OutputDir:   filepath.Join(home, "Videos", "liverec"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func configPath(home string) (string, bool) {
	if explicit := strings.TrimSpace(os.Getenv("LIVEREC_CONFIG")); explicit != "" {
		return explicit, true
	}
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "liverec", "config.toml"), false
}

func decodeFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("invalid config file %s: unknown key %s", path, undecoded[0])
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Encoder.Path = envOrDefault("LIVEREC_FFMPEG", cfg.Encoder.Path)
	cfg.Encoder.LogLevel = envOrDefault("LIVEREC_FFMPEG_LOGLEVEL", cfg.Encoder.LogLevel)
	if args := strings.Fields(os.Getenv("LIVEREC_FFMPEG_INPUT_ARGS")); len(args) > 0 {
		cfg.Encoder.ExtraInputArgs = args
	}

	cfg.Source.Platform = envOrDefault("LIVEREC_PLATFORM", cfg.Source.Platform)
	cfg.Source.APIBaseURL = envOrDefault("LIVEREC_API_BASE", cfg.Source.APIBaseURL)
	cfg.Source.UserAgent = envOrDefault("LIVEREC_USER_AGENT", cfg.Source.UserAgent)
	cfg.Source.Timeout = envOrDefaultMillis("LIVEREC_API_TIMEOUT_MS", cfg.Source.Timeout)

	cfg.Session.StopTimeout = envOrDefaultMillis("LIVEREC_STOP_TIMEOUT_MS", cfg.Session.StopTimeout)
	cfg.Session.OutputDir = envOrDefault("LIVEREC_OUTPUT_DIR", cfg.Session.OutputDir)

	cfg.Log.Level = envOrDefault("LIVEREC_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("LIVEREC_LOG_FORMAT", cfg.Log.Format)
}

func normalize(cfg Config) (Config, error) {
	cfg.Source.Platform = strings.ToLower(strings.TrimSpace(cfg.Source.Platform))
	switch cfg.Source.Platform {
	case "":
		cfg.Source.Platform = PlatformDirect
	case PlatformPocket48, PlatformDirect:
	default:
		return Config{}, fmt.Errorf("unknown source platform %q", cfg.Source.Platform)
	}

	if cfg.Source.Timeout <= 0 {
		cfg.Source.Timeout = defaultSourceTimeout
	}
	if cfg.Session.StopTimeout < 0 {
		cfg.Session.StopTimeout = defaultStopTimeout
	}
	if strings.TrimSpace(cfg.Encoder.LogLevel) == "" {
		cfg.Encoder.LogLevel = "warning"
	}
	if format := strings.ToLower(cfg.Log.Format); format != "json" {
		cfg.Log.Format = "text"
	} else {
		cfg.Log.Format = format
	}
	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// envOrDefaultMillis reads a non-negative millisecond count.
func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	ms := envOrDefaultInt(key, -1)
	if ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"liverec/internal/config"
	"liverec/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("LIVEREC_CONFIG", "")
	t.Setenv("LIVEREC_PLATFORM", "")

	services, err := Build(noopEventSink{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil || services.Locator == nil || services.Logger == nil {
		t.Fatalf("expected wired services: %+v", services)
	}
	if services.Pocket48 == nil {
		t.Fatalf("expected pocket48 client for the default platform")
	}
}

func TestBuildFailsOnInvalidConfigFile(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "bad.toml")
	if err := os.WriteFile(path, []byte("[session\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("LIVEREC_CONFIG", path)

	if _, err := Build(noopEventSink{}); err == nil {
		t.Fatalf("expected build error due to invalid config")
	}
}

func TestAssembleDirectPlatformHasNoResolver(t *testing.T) {
	t.Parallel()

	services := Assemble(config.Config{
		Source: config.SourceConfig{Platform: config.PlatformDirect},
		Log:    config.LogConfig{Level: "error"},
	}, noopEventSink{})

	if services.Pocket48 != nil {
		t.Fatalf("direct platform must not build a pocket48 client")
	}
	if len(services.Controller.Sessions()) != 0 {
		t.Fatalf("expected empty controller")
	}
}

type noopEventSink struct{}

func (noopEventSink) Notify(_ domain.NotifyKind, _ string)     {}
func (noopEventSink) SessionStateChanged(_ domain.SessionInfo) {}

package encoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"liverec/internal/domain"
)

const defaultCommand = "ffmpeg"

// Locator finds the installed encoder executable.
type Locator struct {
	configured string
	lookPath   func(string) (string, error)
}

// NewLocator returns a locator for the configured path or command name.
// An empty value falls back to ffmpeg on PATH.
func NewLocator(configured string) *Locator {
	return &Locator{configured: strings.TrimSpace(configured), lookPath: exec.LookPath}
}

func (l *Locator) Locate() (string, error) {
	command := l.configured
	if command == "" {
		command = defaultCommand
	}

	if strings.ContainsRune(command, filepath.Separator) || strings.ContainsRune(command, '/') {
		info, err := os.Stat(command)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrEncoderNotConfigured, command, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", domain.ErrEncoderNotConfigured, command)
		}
		return command, nil
	}

	path, err := l.lookPath(command)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found on PATH", domain.ErrEncoderNotConfigured, command)
	}
	return path, nil
}

// Probe runs `<encoder> -version` and returns the first line of its output.
func Probe(ctx context.Context, encoderPath string) (string, error) {
	output, err := exec.CommandContext(ctx, encoderPath, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("encoder probe failed: %w", err)
	}
	line := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	if line == "" {
		return "", fmt.Errorf("encoder %s printed no version info", encoderPath)
	}
	return line, nil
}

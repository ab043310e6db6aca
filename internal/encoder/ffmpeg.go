package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"liverec/internal/domain"
	"liverec/internal/ports"
)

const stderrTailLimit = 4096

// Options controls how ffmpeg is invoked.
type Options struct {
	LogLevel       string
	ExtraInputArgs []string
	Logger         *slog.Logger
}

// FFMPEG records a live source into a container file by stream copy.
type FFMPEG struct {
	logLevel       string
	extraInputArgs []string
	logger         *slog.Logger
}

func NewFFMPEG(opts Options) *FFMPEG {
	if opts.LogLevel == "" {
		opts.LogLevel = "warning"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &FFMPEG{
		logLevel:       opts.LogLevel,
		extraInputArgs: append([]string(nil), opts.ExtraInputArgs...),
		logger:         opts.Logger,
	}
}

// Args returns the encoder arguments for one recording.
func (f *FFMPEG) Args(sourceURL string, destinationPath string) []string {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", f.logLevel,
	}
	args = append(args, f.extraInputArgs...)
	args = append(args,
		"-i", sourceURL,
		"-c", "copy",
		"-y",
		destinationPath,
	)
	return args
}

// Start spawns the encoder. The process is killed if ctx is cancelled.
func (f *FFMPEG) Start(ctx context.Context, sourceURL string, destinationPath string, encoderPath string) (ports.EncoderProcess, error) {
	if strings.TrimSpace(encoderPath) == "" {
		return nil, domain.ErrEncoderNotConfigured
	}
	if strings.TrimSpace(sourceURL) == "" {
		return nil, fmt.Errorf("%w: empty source url", domain.ErrSourceUnavailable)
	}
	if strings.TrimSpace(destinationPath) == "" {
		return nil, errors.New("destination path is required")
	}

	cmd := exec.Command(encoderPath, f.Args(sourceURL, destinationPath)...)
	stderr := &tailBuffer{limit: stderrTailLimit}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}
	f.logger.Debug("encoder started", "pid", cmd.Process.Pid, "destination", destinationPath)

	p := &ffmpegProcess{
		cmd:    cmd,
		stderr: stderr,
		done:   make(chan domain.Completion, 1),
		exited: make(chan struct{}),
		logger: f.logger,
	}
	go p.wait()
	go func() {
		select {
		case <-ctx.Done():
			_ = p.Kill()
		case <-p.exited:
		}
	}()
	return p, nil
}

type ffmpegProcess struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	logger *slog.Logger

	done   chan domain.Completion
	exited chan struct{}

	mu        sync.Mutex
	requested bool
}

func (p *ffmpegProcess) Done() <-chan domain.Completion {
	return p.done
}

func (p *ffmpegProcess) Interrupt() error {
	p.markRequested()
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		// os.Interrupt is not deliverable on every platform.
		return p.Kill()
	}
	return nil
}

func (p *ffmpegProcess) Kill() error {
	p.markRequested()
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *ffmpegProcess) markRequested() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requested = true
}

func (p *ffmpegProcess) wait() {
	err := p.cmd.Wait()
	close(p.exited)

	p.mu.Lock()
	requested := p.requested
	p.mu.Unlock()

	var completion domain.Completion
	switch {
	case requested:
		completion = domain.Completion{Kind: domain.CompletionKilled}
	case err == nil:
		completion = domain.Completion{Kind: domain.CompletionSuccess}
	default:
		completion = domain.Completion{Kind: domain.CompletionFailure, Err: describeExit(err, p.stderr.String())}
	}
	p.logger.Debug("encoder exited", "pid", p.cmd.Process.Pid, "completion", completion.Kind.String())

	p.done <- completion
	close(p.done)
}

func describeExit(err error, stderr string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		err = fmt.Errorf("process exited %d", exitErr.ExitCode())
	}
	if detail := lastLine(stderr); detail != "" {
		return fmt.Errorf("%w: %v: %s", domain.ErrStreamFault, err, detail)
	}
	return fmt.Errorf("%w: %v", domain.ErrStreamFault, err)
}

func lastLine(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndexByte(trimmed, '\n'); idx >= 0 {
		return strings.TrimSpace(trimmed[idx+1:])
	}
	return trimmed
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(p)
	b.buf.Write(p)
	if over := b.buf.Len() - b.limit; over > 0 {
		b.buf.Next(over)
	}
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

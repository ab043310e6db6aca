package worker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"liverec/internal/domain"
)

// ServeStdio drives w with newline-delimited JSON commands read from r and
// writes its terminal event to out. Closing r stops the recording.
func ServeStdio(ctx context.Context, w *Worker, r io.Reader, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			cmd, err := domain.UnmarshalCommand(line)
			if err != nil {
				logger.Warn("dropping malformed command", "err", err)
				continue
			}
			if err := w.Send(cmd); err != nil {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Warn("command stream failed", "err", err)
		}
		_ = w.Send(domain.StopCommand{})
	}()

	var event domain.WorkerEvent
	select {
	case ev, ok := <-w.Events():
		if !ok {
			return fmt.Errorf("worker closed without a terminal event")
		}
		event = ev
	case <-ctx.Done():
		w.Kill()
		event = <-w.Events()
	}

	payload, err := domain.MarshalEvent(event)
	if err != nil {
		return err
	}
	if _, err := out.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("failed to write worker event: %w", err)
	}
	return nil
}

// Package worker runs one encoder process per recording behind a
// command/event channel pair. Owners never share memory with a worker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"liverec/internal/domain"
	"liverec/internal/ports"
)

var ErrWorkerTerminated = errors.New("recording worker already terminated")

type state int

const (
	stateIdle state = iota
	stateRecording
	stateTerminating
	stateTerminated
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateRecording:
		return "recording"
	case stateTerminating:
		return "terminating"
	default:
		return "terminated"
	}
}

// Worker owns at most one encoder process and emits exactly one terminal event.
type Worker struct {
	id      string
	invoker ports.EncoderInvoker
	logger  *slog.Logger

	commands chan domain.Command
	events   chan domain.WorkerEvent
	kill     chan struct{}
	killOnce sync.Once
	done     chan struct{}
}

// New starts a worker goroutine bound to ctx. Cancelling ctx kills the encoder.
func New(ctx context.Context, invoker ports.EncoderInvoker, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	w := &Worker{
		id:       id,
		invoker:  invoker,
		logger:   logger.With("worker_id", id),
		commands: make(chan domain.Command),
		events:   make(chan domain.WorkerEvent, 1),
		kill:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run(ctx)
	return w
}

func (w *Worker) ID() string {
	return w.id
}

// Send hands a command to the worker loop. The channel is unbuffered, so a nil
// error means the loop received the command; it fails once the worker has
// terminated.
func (w *Worker) Send(cmd domain.Command) error {
	select {
	case w.commands <- cmd:
		return nil
	case <-w.done:
		return ErrWorkerTerminated
	}
}

func (w *Worker) Events() <-chan domain.WorkerEvent {
	return w.events
}

func (w *Worker) Kill() {
	w.killOnce.Do(func() { close(w.kill) })
}

// Done is closed after the terminal event has been emitted.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	var process ports.EncoderProcess
	current := stateIdle
	kill := w.kill

	for current != stateTerminated {
		switch current {
		case stateIdle:
			select {
			case cmd := <-w.commands:
				switch c := cmd.(type) {
				case domain.StartCommand:
					w.logger.Info("starting encoder", "stream_id", c.StreamID, "destination", c.DestinationPath)
					if w.invoker == nil {
						w.emit(domain.ErrorEvent{Cause: fmt.Errorf("%w: no encoder invoker", domain.ErrWorkerSpawn)})
						current = stateTerminated
						continue
					}
					p, err := w.invoker.Start(ctx, c.SourceURL, c.DestinationPath, c.EncoderPath)
					if err != nil {
						w.emit(domain.ErrorEvent{Cause: err})
						current = stateTerminated
						continue
					}
					process = p
					current = stateRecording
				case domain.StopCommand:
					w.emit(domain.CloseEvent{})
					current = stateTerminated
				}
			case <-kill:
				w.emit(domain.CloseEvent{})
				current = stateTerminated
			case <-ctx.Done():
				w.emit(domain.CloseEvent{})
				current = stateTerminated
			}

		case stateRecording, stateTerminating:
			select {
			case cmd := <-w.commands:
				switch cmd.(type) {
				case domain.StartCommand:
					w.logger.Warn("ignoring start command", "state", current.String())
				case domain.StopCommand:
					if current == stateRecording {
						w.logger.Info("stopping encoder")
						if err := process.Interrupt(); err != nil {
							w.logger.Warn("interrupt failed", "err", err)
						}
						current = stateTerminating
					}
				}
			case <-kill:
				kill = nil
				w.logger.Warn("killing encoder")
				if err := process.Kill(); err != nil {
					w.logger.Warn("kill failed", "err", err)
				}
				current = stateTerminating
			case completion, ok := <-process.Done():
				if !ok {
					completion = domain.Completion{Kind: domain.CompletionFailure, Err: fmt.Errorf("%w: encoder exited without status", domain.ErrStreamFault)}
				}
				w.emit(eventFor(completion))
				current = stateTerminated
			}
		}
	}
}

func (w *Worker) emit(event domain.WorkerEvent) {
	switch e := event.(type) {
	case domain.CloseEvent:
		w.logger.Info("worker closed")
	case domain.ErrorEvent:
		w.logger.Error("worker failed", "err", e.Cause)
	}
	w.events <- event
	close(w.events)
}

func eventFor(completion domain.Completion) domain.WorkerEvent {
	switch completion.Kind {
	case domain.CompletionFailure:
		cause := completion.Err
		if cause == nil {
			cause = domain.ErrStreamFault
		}
		return domain.ErrorEvent{Cause: cause}
	default:
		return domain.CloseEvent{}
	}
}

// Factory creates workers sharing one encoder invoker.
type Factory struct {
	invoker ports.EncoderInvoker
	logger  *slog.Logger
}

func NewFactory(invoker ports.EncoderInvoker, logger *slog.Logger) *Factory {
	return &Factory{invoker: invoker, logger: logger}
}

func (f *Factory) NewWorker(ctx context.Context) (ports.RecordingWorker, error) {
	if f.invoker == nil {
		return nil, fmt.Errorf("%w: no encoder invoker", domain.ErrWorkerSpawn)
	}
	return New(ctx, f.invoker, f.logger), nil
}

package ports

import (
	"context"

	"liverec/internal/domain"
)

// EncoderProcess is a running capture/transcode process.
type EncoderProcess interface {
	// Done delivers exactly one Completion when the process exits.
	Done() <-chan domain.Completion
	// Interrupt asks the process to finish writing and exit.
	Interrupt() error
	// Kill terminates the process immediately.
	Kill() error
}

// EncoderInvoker spawns external encoder processes.
type EncoderInvoker interface {
	Start(ctx context.Context, sourceURL string, destinationPath string, encoderPath string) (EncoderProcess, error)
}

// EncoderLocator returns the path of the installed external encoder.
type EncoderLocator interface {
	Locate() (string, error)
}

// SourceResolver resolves the current playable URL of a live stream.
type SourceResolver interface {
	Resolve(ctx context.Context, streamID string) (string, error)
}

// RecordingWorker is the owner-side handle of an out-of-line recording worker.
type RecordingWorker interface {
	ID() string
	Send(cmd domain.Command) error
	// Events delivers the single terminal event and is then closed.
	Events() <-chan domain.WorkerEvent
	// Kill force-terminates the worker's encoder process.
	Kill()
}

// WorkerFactory creates recording workers.
type WorkerFactory interface {
	NewWorker(ctx context.Context) (RecordingWorker, error)
}

// Notifier is a fire-and-forget sink for user notifications.
type Notifier interface {
	Notify(kind domain.NotifyKind, message string)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	Notifier
	SessionStateChanged(info domain.SessionInfo)
}

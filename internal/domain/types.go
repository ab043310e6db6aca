package domain

import (
	"path/filepath"
	"strings"
)

// SessionState models the recording session lifecycle.
type SessionState string

const (
	SessionStateStarting   SessionState = "starting"
	SessionStateRunning    SessionState = "running"
	SessionStateStopping   SessionState = "stopping"
	SessionStateTerminated SessionState = "terminated"
	SessionStateFailed     SessionState = "failed"
)

// NotifyKind is the severity of a user-facing notification.
type NotifyKind string

const (
	NotifyInfo    NotifyKind = "info"
	NotifyWarning NotifyKind = "warning"
	NotifyError   NotifyKind = "error"
)

// RecordingTarget describes what to record. It is never mutated after creation.
type RecordingTarget struct {
	StreamID        string `json:"streamId"`
	SourceURL       string `json:"sourceUrl"`
	DestinationPath string `json:"destinationPath"`
	DisplayTitle    string `json:"displayTitle"`
}

// Title returns the display title, falling back to the stream id.
func (t RecordingTarget) Title() string {
	if title := strings.TrimSpace(t.DisplayTitle); title != "" {
		return title
	}
	return t.StreamID
}

// SessionInfo is a read-only view of a recording session for display.
type SessionInfo struct {
	StreamID        string       `json:"streamId"`
	WorkerID        string       `json:"workerId"`
	DisplayTitle    string       `json:"displayTitle"`
	DestinationPath string       `json:"destinationPath"`
	State           SessionState `json:"state"`
}

// Status summarizes the backend for the UI.
type Status struct {
	Ready    bool          `json:"ready"`
	Message  string        `json:"message,omitempty"`
	Sessions []SessionInfo `json:"sessions"`
}

// CompletionKind classifies how an encoder process ended.
type CompletionKind int

const (
	CompletionSuccess CompletionKind = iota
	CompletionFailure
	CompletionKilled
)

func (k CompletionKind) String() string {
	switch k {
	case CompletionSuccess:
		return "success"
	case CompletionFailure:
		return "failure"
	case CompletionKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Completion is the single result delivered when an encoder process exits.
// Err is set only for CompletionFailure.
type Completion struct {
	Kind CompletionKind
	Err  error
}

var unsafeFilenameChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", "\n", " ", "\r", " ",
)

// DefaultFilename builds the suggested recording file name for a stream.
func DefaultFilename(title string, streamID string) string {
	title = strings.TrimSpace(unsafeFilenameChars.Replace(title))
	streamID = strings.TrimSpace(unsafeFilenameChars.Replace(streamID))

	name := streamID
	if title != "" {
		name = title + "_" + streamID
	}
	if name == "" {
		name = "recording"
	}
	return name + ".flv"
}

// DefaultDestination joins DefaultFilename onto dir.
func DefaultDestination(dir string, title string, streamID string) string {
	return filepath.Join(dir, DefaultFilename(title, streamID))
}

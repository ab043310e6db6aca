package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	wireTypeStart = "start"
	wireTypeStop  = "stop"
	wireTypeClose = "close"
	wireTypeError = "error"
)

type wireCommand struct {
	Type            string `json:"type"`
	StreamID        string `json:"streamId,omitempty"`
	SourceURL       string `json:"sourceUrl,omitempty"`
	DestinationPath string `json:"destinationPath,omitempty"`
	EncoderPath     string `json:"encoderPath,omitempty"`
}

type wireEvent struct {
	Type  string     `json:"type"`
	Error *wireError `json:"error,omitempty"`
}

type wireError struct {
	Message string `json:"message"`
}

// RemoteError is the cause carried by an ErrorEvent decoded from the wire.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string { return e.Msg }

func (e *RemoteError) Unwrap() error { return ErrStreamFault }

// MarshalCommand encodes a command in its wire form.
func MarshalCommand(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case StartCommand:
		return json.Marshal(wireCommand{
			Type:            wireTypeStart,
			StreamID:        c.StreamID,
			SourceURL:       c.SourceURL,
			DestinationPath: c.DestinationPath,
			EncoderPath:     c.EncoderPath,
		})
	case StopCommand:
		return json.Marshal(wireCommand{Type: wireTypeStop})
	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}
}

// UnmarshalCommand decodes a command from its wire form.
func UnmarshalCommand(data []byte) (Command, error) {
	var wire wireCommand
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("invalid command payload: %w", err)
	}
	switch wire.Type {
	case wireTypeStart:
		return StartCommand{
			StreamID:        wire.StreamID,
			SourceURL:       wire.SourceURL,
			DestinationPath: wire.DestinationPath,
			EncoderPath:     wire.EncoderPath,
		}, nil
	case wireTypeStop:
		return StopCommand{}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", wire.Type)
	}
}

// MarshalEvent encodes a worker event in its wire form.
func MarshalEvent(event WorkerEvent) ([]byte, error) {
	switch e := event.(type) {
	case CloseEvent:
		return json.Marshal(wireEvent{Type: wireTypeClose})
	case ErrorEvent:
		return json.Marshal(wireEvent{Type: wireTypeError, Error: &wireError{Message: e.Message()}})
	default:
		return nil, fmt.Errorf("unsupported event %T", event)
	}
}

// UnmarshalEvent decodes a worker event from its wire form.
func UnmarshalEvent(data []byte) (WorkerEvent, error) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	switch wire.Type {
	case wireTypeClose:
		return CloseEvent{}, nil
	case wireTypeError:
		if wire.Error == nil || wire.Error.Message == "" {
			return ErrorEvent{Cause: errors.New("unknown error")}, nil
		}
		return ErrorEvent{Cause: &RemoteError{Msg: wire.Error.Message}}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", wire.Type)
	}
}

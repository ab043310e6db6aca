package domain

// Command is a control message sent to a recording worker.
// The concrete types are StartCommand and StopCommand.
type Command interface {
	isCommand()
}

// StartCommand asks an idle worker to begin recording.
type StartCommand struct {
	StreamID        string
	SourceURL       string
	DestinationPath string
	EncoderPath     string
}

// StopCommand asks a worker to terminate its encoder gracefully.
type StopCommand struct{}

func (StartCommand) isCommand() {}
func (StopCommand) isCommand()  {}

// WorkerEvent is a terminal event emitted by a recording worker.
// The concrete types are CloseEvent and ErrorEvent.
type WorkerEvent interface {
	isWorkerEvent()
}

// CloseEvent reports a normal or requested end of recording.
type CloseEvent struct{}

// ErrorEvent reports a spawn failure, encoder crash or unexpected stream end.
type ErrorEvent struct {
	Cause error
}

func (CloseEvent) isWorkerEvent() {}
func (ErrorEvent) isWorkerEvent() {}

// Message returns the human readable cause.
func (e ErrorEvent) Message() string {
	if e.Cause == nil {
		return "unknown error"
	}
	return e.Cause.Error()
}

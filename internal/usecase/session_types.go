package usecase

import (
	"context"
	"sync"

	"liverec/internal/domain"
	"liverec/internal/ports"
)

type recordingSession struct {
	target domain.RecordingTarget
	worker ports.RecordingWorker
	cancel context.CancelFunc

	stateMu sync.Mutex
	state   domain.SessionState

	finishOnce sync.Once
	outcome    domain.WorkerEvent
	done       chan struct{}
}

func newRecordingSession(target domain.RecordingTarget, worker ports.RecordingWorker, cancel context.CancelFunc) *recordingSession {
	return &recordingSession{
		target: target,
		worker: worker,
		cancel: cancel,
		state:  domain.SessionStateStarting,
		done:   make(chan struct{}),
	}
}

func (s *recordingSession) setState(state domain.SessionState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

func (s *recordingSession) getState() domain.SessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// markRunning moves a starting session to Running. It reports false when a
// stop or the terminal event got there first.
func (s *recordingSession) markRunning() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != domain.SessionStateStarting {
		return false
	}
	s.state = domain.SessionStateRunning
	return true
}

// beginStop moves an active session to Stopping. It reports false when the
// session was already stopping or finished.
func (s *recordingSession) beginStop() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	switch s.state {
	case domain.SessionStateStarting, domain.SessionStateRunning:
		s.state = domain.SessionStateStopping
		return true
	default:
		return false
	}
}

func (s *recordingSession) info() domain.SessionInfo {
	return domain.SessionInfo{
		StreamID:        s.target.StreamID,
		WorkerID:        s.worker.ID(),
		DisplayTitle:    s.target.Title(),
		DestinationPath: s.target.DestinationPath,
		State:           s.getState(),
	}
}

// outcomeErr returns the cause of a failed session. Valid after done is closed.
func (s *recordingSession) outcomeErr() error {
	if e, ok := s.outcome.(domain.ErrorEvent); ok {
		return e.Cause
	}
	return nil
}

package domain

import "errors"

var (
	ErrDuplicateSession     = errors.New("recording already active for stream")
	ErrSourceUnavailable    = errors.New("source unavailable")
	ErrEncoderNotConfigured = errors.New("encoder not configured")
	ErrWorkerSpawn          = errors.New("failed to spawn recording worker")
	ErrStreamFault          = errors.New("stream fault")
)

// ErrorCode identifies the class of a failure reported to the UI.
type ErrorCode string

const (
	ErrorCodeStartup              ErrorCode = "startup"
	ErrorCodeDuplicateSession     ErrorCode = "duplicate_session"
	ErrorCodeSourceUnavailable    ErrorCode = "source_unavailable"
	ErrorCodeEncoderNotConfigured ErrorCode = "encoder_not_configured"
	ErrorCodeWorkerSpawn          ErrorCode = "worker_spawn"
	ErrorCodeStreamFault          ErrorCode = "stream_fault"
	ErrorCodeUnknown              ErrorCode = "unknown"
)

// CodeOf maps an error onto its ErrorCode.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateSession):
		return ErrorCodeDuplicateSession
	case errors.Is(err, ErrSourceUnavailable):
		return ErrorCodeSourceUnavailable
	case errors.Is(err, ErrEncoderNotConfigured):
		return ErrorCodeEncoderNotConfigured
	case errors.Is(err, ErrWorkerSpawn):
		return ErrorCodeWorkerSpawn
	case errors.Is(err, ErrStreamFault):
		return ErrorCodeStreamFault
	default:
		return ErrorCodeUnknown
	}
}

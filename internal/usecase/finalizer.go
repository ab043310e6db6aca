package usecase

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"liverec/internal/domain"
	"liverec/internal/flvprobe"
	"liverec/internal/ports"
)

type probeFunc func(path string) (flvprobe.Summary, error)

type recordingFinalizer struct {
	events ports.Notifier
	probe  probeFunc
	logger *slog.Logger
}

func newRecordingFinalizer(events ports.Notifier, probe probeFunc, logger *slog.Logger) recordingFinalizer {
	return recordingFinalizer{events: events, probe: probe, logger: logger}
}

// Saved reports a recording that closed normally. Only the file's header and
// last tag are read.
func (f recordingFinalizer) Saved(target domain.RecordingTarget) {
	summary, err := f.probe(target.DestinationPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f.events.Notify(domain.NotifyInfo, fmt.Sprintf("Recording of %s stopped before any data was written", target.Title()))
	case err != nil:
		f.logger.Debug("recording probe skipped", "path", target.DestinationPath, "err", err)
		f.events.Notify(domain.NotifyInfo, fmt.Sprintf("Recording saved: %s (%s)", target.Title(), target.DestinationPath))
	case summary.Empty():
		f.events.Notify(domain.NotifyWarning, fmt.Sprintf("Recording of %s contains no media (%d bytes): %s", target.Title(), summary.Size, target.DestinationPath))
	case summary.Truncated:
		f.events.Notify(domain.NotifyWarning, fmt.Sprintf("Recording saved: %s, last write incomplete (%s)", target.Title(), target.DestinationPath))
	default:
		f.events.Notify(domain.NotifyInfo, fmt.Sprintf("Recording saved: %s, %s (%s)", target.Title(), summary.Duration.Round(time.Second), target.DestinationPath))
	}
}

package usecase

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"liverec/internal/domain"
	"liverec/internal/flvprobe"
	"liverec/internal/logging"
)

func TestRecordingFinalizerReportsDuration(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	f := newRecordingFinalizer(events, func(string) (flvprobe.Summary, error) {
		return flvprobe.Summary{Size: 2048, HasMedia: true, Duration: 61400 * time.Millisecond}, nil
	}, logging.Discard())

	f.Saved(domain.RecordingTarget{StreamID: "42", DisplayTitle: "Show", DestinationPath: "/tmp/show.flv"})

	notes := events.snapshotNotes()
	if len(notes) != 1 || notes[0].kind != domain.NotifyInfo {
		t.Fatalf("unexpected notes: %+v", notes)
	}
	if notes[0].message != "Recording saved: Show, 1m1s (/tmp/show.flv)" {
		t.Fatalf("unexpected message: %q", notes[0].message)
	}
}

func TestRecordingFinalizerMissingFile(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	f := newRecordingFinalizer(events, func(string) (flvprobe.Summary, error) {
		return flvprobe.Summary{}, fmt.Errorf("open: %w", fs.ErrNotExist)
	}, logging.Discard())

	f.Saved(domain.RecordingTarget{StreamID: "42", DestinationPath: "/tmp/none.flv"})

	if !events.hasNote(domain.NotifyInfo, "Recording of 42 stopped before any data was written") {
		t.Fatalf("unexpected notes: %+v", events.snapshotNotes())
	}
}

func TestRecordingFinalizerEmptyRecordingWarns(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	f := newRecordingFinalizer(events, func(string) (flvprobe.Summary, error) {
		return flvprobe.Summary{Size: 13}, nil
	}, logging.Discard())

	f.Saved(domain.RecordingTarget{StreamID: "42", DestinationPath: "/tmp/empty.flv"})

	if !events.hasNote(domain.NotifyWarning, "contains no media (13 bytes): /tmp/empty.flv") {
		t.Fatalf("unexpected notes: %+v", events.snapshotNotes())
	}
}

func TestRecordingFinalizerProbeErrorStillReportsSaved(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	f := newRecordingFinalizer(events, func(string) (flvprobe.Summary, error) {
		return flvprobe.Summary{}, flvprobe.ErrNotFLV
	}, logging.Discard())

	f.Saved(domain.RecordingTarget{StreamID: "42", DestinationPath: "/tmp/x.ts"})

	notes := events.snapshotNotes()
	if len(notes) != 1 || notes[0].kind != domain.NotifyInfo || !strings.HasPrefix(notes[0].message, "Recording saved: 42") {
		t.Fatalf("unexpected notes: %+v", notes)
	}
}

func TestRecordingFinalizerFlagsTruncatedRecording(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	f := newRecordingFinalizer(events, func(string) (flvprobe.Summary, error) {
		return flvprobe.Summary{Size: 4096, HasMedia: true, Truncated: true}, nil
	}, logging.Discard())

	f.Saved(domain.RecordingTarget{StreamID: "42", DisplayTitle: "Show", DestinationPath: "/tmp/show.flv"})

	if !events.hasNote(domain.NotifyWarning, "Recording saved: Show, last write incomplete (/tmp/show.flv)") {
		t.Fatalf("unexpected notes: %+v", events.snapshotNotes())
	}
}

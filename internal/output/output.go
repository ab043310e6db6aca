// Package output renders CLI progress and doubles as the CLI's event sink.
package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"liverec/internal/domain"
	"liverec/internal/source/pocket48"
)

type Formatter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) printf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.w, format, args...)
}

// Notify implements ports.Notifier.
func (f *Formatter) Notify(kind domain.NotifyKind, message string) {
	switch kind {
	case domain.NotifyError:
		f.Error(message)
	case domain.NotifyWarning:
		f.Warning(message)
	default:
		f.Info(message)
	}
}

// SessionStateChanged implements ports.EventSink.
func (f *Formatter) SessionStateChanged(info domain.SessionInfo) {
	switch info.State {
	case domain.SessionStateRunning:
		f.printf("⏺️  Recording %s -> %s\n", info.DisplayTitle, info.DestinationPath)
	case domain.SessionStateStopping:
		f.printf("⏹️  Stopping %s...\n", info.DisplayTitle)
	}
}

func (f *Formatter) RecordingStopped(title string, duration time.Duration) {
	f.printf("⏹️  %s stopped (%s)\n", title, formatDuration(duration))
}

func (f *Formatter) Error(msg string) {
	f.printf("❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	f.printf("ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	f.printf("✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	f.printf("⚠️  %s\n", msg)
}

func (f *Formatter) LiveListHeader() {
	f.printf("📺 Live now:\n\n")
}

func (f *Formatter) LiveListItem(live pocket48.LiveInfo) {
	f.printf("  %-22s %-16s %s\n", live.LiveID, live.Nickname(), live.Title)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		f.printf("  ✅ %s: %s\n", name, detail)
	} else {
		f.printf("  ❌ %s: %s\n", name, detail)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

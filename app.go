package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"liverec/internal/bootstrap"
	"liverec/internal/domain"
	"liverec/internal/source/pocket48"
	"liverec/internal/usecase"
)

const (
	eventNotify  = "liverec:notify"
	eventSession = "liverec:session"

	shutdownGrace = 20 * time.Second
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	services bootstrap.Services
	bootErr  error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.Notify(domain.NotifyError, errorMessage(domain.ErrorCodeStartup, err.Error()))
		return
	}
	a.services = services
}

func (a *App) shutdown(_ context.Context) {
	if a.services.Controller == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.services.Controller.StopAll(ctx); err != nil {
		a.services.Logger.Warn("recordings did not stop cleanly", "err", err)
	}
}

// LivePage is one page of the live list.
type LivePage struct {
	Lives []pocket48.LiveInfo `json:"lives"`
	Next  string              `json:"next"`
}

// StartRecording starts recording target. An empty destination is filled in
// under the configured output directory.
func (a *App) StartRecording(target domain.RecordingTarget) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if strings.TrimSpace(target.DestinationPath) == "" {
		dir := a.services.Config.Session.OutputDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		target.DestinationPath = domain.DefaultDestination(dir, target.Title(), target.StreamID)
	}
	if err := a.services.Controller.StartRecording(a.ctx, target); err != nil {
		if errors.Is(err, usecase.ErrInvalidTarget) {
			return errors.New("choose a stream and a destination first")
		}
		return errors.New(errorMessage(domain.CodeOf(err), errorDetail(err)))
	}
	return nil
}

// StopRecording stops the recording of streamID. Unknown ids are ignored.
func (a *App) StopRecording(streamID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Controller.StopRecording(a.ctx, streamID)
}

// ListRecordings returns the active recordings.
func (a *App) ListRecordings() []domain.SessionInfo {
	if a.services.Controller == nil {
		return []domain.SessionInfo{}
	}
	return a.services.Controller.Sessions()
}

// ListLive returns one page of running lives from the configured platform.
func (a *App) ListLive(next string) (LivePage, error) {
	if err := a.requireReady(); err != nil {
		return LivePage{}, err
	}
	if a.services.Pocket48 == nil {
		return LivePage{}, errors.New("live listing requires the pocket48 platform")
	}
	lives, cursor, err := a.services.Pocket48.ListLive(a.ctx, next)
	if err != nil {
		return LivePage{}, errors.New(errorMessage(domain.CodeOf(err), errorDetail(err)))
	}
	return LivePage{Lives: lives, Next: cursor}, nil
}

// ChooseDestination asks the user where to save a recording. An empty path
// means the dialog was cancelled.
func (a *App) ChooseDestination(title string, streamID string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:            "Save recording",
		DefaultDirectory: a.services.Config.Session.OutputDir,
		DefaultFilename:  domain.DefaultFilename(title, streamID),
		Filters: []runtime.FileFilter{
			{DisplayName: "FLV video (*.flv)", Pattern: "*.flv"},
		},
	})
}

// GetStatus returns the backend status and active recordings.
func (a *App) GetStatus() domain.Status {
	if a.services.Controller == nil {
		if a.bootErr != nil {
			return domain.Status{Message: a.bootErr.Error(), Sessions: []domain.SessionInfo{}}
		}
		return domain.Status{Sessions: []domain.SessionInfo{}}
	}
	return domain.Status{Ready: true, Sessions: a.services.Controller.Sessions()}
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services.Controller == nil {
		return map[string]string{}
	}

	cfg := a.services.Config
	info := map[string]string{
		"platform":    cfg.Source.Platform,
		"outputDir":   cfg.Session.OutputDir,
		"stopTimeout": cfg.Session.StopTimeout.String(),
		"configFile":  cfg.File,
	}
	if path, err := a.services.Locator.Locate(); err != nil {
		info["encoderError"] = err.Error()
	} else {
		info["encoder"] = path
	}
	return info
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services.Controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// Notify emits a user notification to the frontend.
func (a *App) Notify(kind domain.NotifyKind, message string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventNotify, map[string]string{
		"kind":    string(kind),
		"message": message,
	})
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(info domain.SessionInfo) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]any{
		"session": info,
		"message": sessionStateMessage(info.State),
	})
}

func sessionStateMessage(state domain.SessionState) string {
	switch state {
	case domain.SessionStateStarting:
		return "Starting recording"
	case domain.SessionStateRunning:
		return "Recording"
	case domain.SessionStateStopping:
		return "Stopping recording"
	case domain.SessionStateTerminated:
		return "Recording finished"
	case domain.SessionStateFailed:
		return "Recording failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed: " + detail
	case domain.ErrorCodeDuplicateSession:
		return "This stream is already being recorded"
	case domain.ErrorCodeSourceUnavailable:
		return withDetail("Stream source unavailable", detail)
	case domain.ErrorCodeEncoderNotConfigured:
		return "FFmpeg is not configured"
	case domain.ErrorCodeWorkerSpawn:
		return withDetail("Could not start the recording worker", detail)
	case domain.ErrorCodeStreamFault:
		return withDetail("Recording stream failed", detail)
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

func withDetail(summary string, detail string) string {
	if detail == "" {
		return summary
	}
	return summary + ": " + detail
}

// errorDetail strips the sentinel prefix errorMessage already renders.
func errorDetail(err error) string {
	detail := err.Error()
	for _, sentinel := range []error{domain.ErrSourceUnavailable, domain.ErrWorkerSpawn, domain.ErrStreamFault} {
		if errors.Is(err, sentinel) {
			detail = strings.TrimPrefix(detail, sentinel.Error())
			detail = strings.TrimPrefix(detail, ": ")
		}
	}
	return detail
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"liverec/internal/domain"
	"liverec/internal/flvprobe"
	"liverec/internal/logging"
	"liverec/internal/ports"
	"liverec/internal/registry"
)

var ErrInvalidTarget = errors.New("recording target requires a stream id and destination path")

// Config controls recording lifecycle behavior.
type Config struct {
	// StopTimeout bounds how long StopRecording waits for the encoder to
	// exit before force-killing it. Zero waits indefinitely.
	StopTimeout time.Duration
}

// Controller orchestrates recording sessions keyed by stream id.
type Controller struct {
	locator   ports.EncoderLocator
	resolver  ports.SourceResolver
	workers   ports.WorkerFactory
	events    ports.EventSink
	finalizer recordingFinalizer
	registry  *registry.Registry[*recordingSession]
	cfg       Config
	logger    *slog.Logger

	mu       sync.Mutex
	starting map[string]struct{}
}

// NewController builds a controller. resolver may be nil, in which case the
// target's own SourceURL is recorded.
func NewController(
	locator ports.EncoderLocator,
	resolver ports.SourceResolver,
	workers ports.WorkerFactory,
	events ports.EventSink,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	logger = logging.WithComponent(logger, "controller")
	return &Controller{
		locator:   locator,
		resolver:  resolver,
		workers:   workers,
		events:    events,
		finalizer: newRecordingFinalizer(events, flvprobe.ProbeFile, logger),
		registry:  registry.New[*recordingSession](),
		cfg:       cfg,
		logger:    logger,
		starting:  make(map[string]struct{}),
	}
}

// StartRecording spawns a worker for target and registers its session.
func (c *Controller) StartRecording(ctx context.Context, target domain.RecordingTarget) error {
	target.StreamID = strings.TrimSpace(target.StreamID)
	target.DestinationPath = strings.TrimSpace(target.DestinationPath)
	if target.StreamID == "" || target.DestinationPath == "" {
		return ErrInvalidTarget
	}

	ctx = logging.ContextWithStreamID(ctx, target.StreamID)
	logger := logging.WithContext(ctx, c.logger)

	if !c.reserve(target.StreamID) {
		c.events.Notify(domain.NotifyWarning, fmt.Sprintf("Already recording %s", target.Title()))
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSession, target.StreamID)
	}
	defer c.release(target.StreamID)

	encoderPath, err := c.locator.Locate()
	if err != nil {
		if !errors.Is(err, domain.ErrEncoderNotConfigured) {
			err = fmt.Errorf("%w: %v", domain.ErrEncoderNotConfigured, err)
		}
		logger.Warn("encoder unavailable", "err", err)
		c.events.Notify(domain.NotifyError, "FFmpeg is not configured. Set the encoder path in settings and try again.")
		return err
	}

	sourceURL, err := c.resolveSource(ctx, target)
	if err != nil {
		logger.Warn("source unavailable", "err", err)
		c.events.Notify(domain.NotifyError, fmt.Sprintf("Source unavailable for %s: %v", target.Title(), err))
		return err
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	worker, err := c.workers.NewWorker(workerCtx)
	if err != nil {
		cancel()
		if !errors.Is(err, domain.ErrWorkerSpawn) {
			err = fmt.Errorf("%w: %v", domain.ErrWorkerSpawn, err)
		}
		logger.Error("worker spawn failed", "err", err)
		c.events.Notify(domain.NotifyError, fmt.Sprintf("Could not start recording %s: %v", target.Title(), err))
		return err
	}

	session := newRecordingSession(target, worker, cancel)
	if err := c.registry.Register(target.StreamID, session); err != nil {
		worker.Kill()
		cancel()
		return err
	}
	// watch runs before the session is announced so a stop issued from then
	// on always sees the worker's terminal event.
	go c.watch(session)
	c.events.SessionStateChanged(session.info())

	if err := worker.Send(domain.StartCommand{
		StreamID:        target.StreamID,
		SourceURL:       sourceURL,
		DestinationPath: target.DestinationPath,
		EncoderPath:     encoderPath,
	}); err != nil {
		if session.getState() != domain.SessionStateStarting {
			// A stop got to the idle worker first and owns the outcome.
			logger.Debug("start superseded by stop", "err", err)
			worker.Kill()
			return nil
		}
		err = fmt.Errorf("%w: %v", domain.ErrWorkerSpawn, err)
		logger.Error("worker rejected start", "err", err)
		c.forceStop(session, err)
		return err
	}

	if session.markRunning() {
		c.events.SessionStateChanged(session.info())
	}
	logger.Info("recording started", "worker_id", worker.ID(), "destination", target.DestinationPath)
	return nil
}

// StopRecording stops the session for streamID and waits until it has been
// deregistered. Stopping an unknown stream is a no-op.
func (c *Controller) StopRecording(ctx context.Context, streamID string) error {
	session, ok := c.registry.Find(strings.TrimSpace(streamID))
	if !ok {
		return nil
	}
	logger := c.logger.With("stream_id", session.target.StreamID)

	if session.beginStop() {
		c.events.SessionStateChanged(session.info())
		if err := session.worker.Send(domain.StopCommand{}); err != nil {
			// The worker already terminated; its event is on the way.
			logger.Debug("stop after worker termination", "err", err)
		}
	}

	var timeout <-chan time.Time
	if c.cfg.StopTimeout > 0 {
		timer := time.NewTimer(c.cfg.StopTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-session.done:
		return nil
	case <-timeout:
		logger.Warn("encoder did not exit in time, killing", "timeout", c.cfg.StopTimeout)
		c.forceStop(session, fmt.Errorf("%w: encoder did not exit within %s", domain.ErrStreamFault, c.cfg.StopTimeout))
		return nil
	case <-ctx.Done():
		logger.Warn("stop abandoned, killing", "err", ctx.Err())
		c.forceStop(session, fmt.Errorf("%w: stop interrupted: %v", domain.ErrStreamFault, ctx.Err()))
		return ctx.Err()
	}
}

// StopAll stops every active session concurrently.
func (c *Controller) StopAll(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, id := range c.registry.IDs() {
		group.Go(func() error {
			return c.StopRecording(groupCtx, id)
		})
	}
	return group.Wait()
}

// Await blocks until the session for streamID ends and returns its failure
// cause, if any. An unknown stream returns immediately.
func (c *Controller) Await(ctx context.Context, streamID string) error {
	session, ok := c.registry.Find(strings.TrimSpace(streamID))
	if !ok {
		return nil
	}
	select {
	case <-session.done:
		return session.outcomeErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session returns the display view of one active session.
func (c *Controller) Session(streamID string) (domain.SessionInfo, bool) {
	session, ok := c.registry.Find(strings.TrimSpace(streamID))
	if !ok {
		return domain.SessionInfo{}, false
	}
	return session.info(), true
}

// Sessions lists active sessions sorted by stream id.
func (c *Controller) Sessions() []domain.SessionInfo {
	infos := lo.Map(c.registry.Snapshot(), func(s *recordingSession, _ int) domain.SessionInfo {
		return s.info()
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].StreamID < infos[j].StreamID })
	return infos
}

func (c *Controller) resolveSource(ctx context.Context, target domain.RecordingTarget) (string, error) {
	if c.resolver == nil {
		if strings.TrimSpace(target.SourceURL) == "" {
			return "", fmt.Errorf("%w: no source url for %s", domain.ErrSourceUnavailable, target.StreamID)
		}
		return target.SourceURL, nil
	}

	playURL, err := c.resolver.Resolve(ctx, target.StreamID)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
		}
		return "", err
	}
	if strings.TrimSpace(playURL) == "" {
		return "", fmt.Errorf("%w: empty play url for %s", domain.ErrSourceUnavailable, target.StreamID)
	}
	return playURL, nil
}

func (c *Controller) reserve(streamID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, pending := c.starting[streamID]; pending {
		return false
	}
	if _, active := c.registry.Find(streamID); active {
		return false
	}
	c.starting[streamID] = struct{}{}
	return true
}

func (c *Controller) release(streamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.starting, streamID)
}

func (c *Controller) watch(session *recordingSession) {
	event, ok := <-session.worker.Events()
	if !ok {
		event = domain.ErrorEvent{Cause: fmt.Errorf("%w: worker ended without a terminal event", domain.ErrStreamFault)}
	}
	c.finish(session, event)
}

// forceStop records the failure before killing so the close event the kill
// produces is ignored.
func (c *Controller) forceStop(session *recordingSession, cause error) {
	c.finish(session, domain.ErrorEvent{Cause: cause})
	session.worker.Kill()
}

// finish handles the terminal event of a session. Only the first call for a
// session has any effect. The session leaves the registry only after its
// notifications went out, so a caller that no longer finds it has nothing
// left to wait for.
func (c *Controller) finish(session *recordingSession, event domain.WorkerEvent) {
	session.finishOnce.Do(func() {
		session.cancel()
		session.outcome = event

		switch e := event.(type) {
		case domain.CloseEvent:
			session.setState(domain.SessionStateTerminated)
			c.logger.Info("recording closed", "stream_id", session.target.StreamID)
			c.finalizer.Saved(session.target)
		case domain.ErrorEvent:
			session.setState(domain.SessionStateFailed)
			c.logger.Error("recording failed", "stream_id", session.target.StreamID, "err", e.Cause)
			c.events.Notify(domain.NotifyError, fmt.Sprintf("Recording of %s failed: %s", session.target.Title(), e.Message()))
		}

		c.events.SessionStateChanged(session.info())
		c.deregister(session)
		close(session.done)
	})
}

func (c *Controller) deregister(session *recordingSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.registry.Find(session.target.StreamID); ok && current == session {
		c.registry.Remove(session.target.StreamID)
	}
}

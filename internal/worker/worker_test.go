package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"liverec/internal/domain"
	"liverec/internal/ports"
)

func TestWorkerStartThenNaturalEndEmitsClose(t *testing.T) {
	t.Parallel()

	process := newFakeProcess()
	invoker := &fakeInvoker{processes: []*fakeProcess{process}}
	w := New(context.Background(), invoker, nil)

	if err := w.Send(startCommand("A")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	invoker.waitCalls(t, 1)
	process.finish(domain.Completion{Kind: domain.CompletionSuccess})

	if _, ok := waitEvent(t, w).(domain.CloseEvent); !ok {
		t.Fatalf("expected close event")
	}
	assertEventsClosed(t, w)
}

func TestWorkerStopInterruptsAndEmitsClose(t *testing.T) {
	t.Parallel()

	process := newFakeProcess()
	process.exitOnInterrupt = true
	invoker := &fakeInvoker{processes: []*fakeProcess{process}}
	w := New(context.Background(), invoker, nil)

	if err := w.Send(startCommand("A")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := w.Send(domain.StopCommand{}); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if _, ok := waitEvent(t, w).(domain.CloseEvent); !ok {
		t.Fatalf("expected close event")
	}
	if process.interrupts() != 1 {
		t.Fatalf("expected one interrupt, got %d", process.interrupts())
	}
}

func TestWorkerFaultEmitsError(t *testing.T) {
	t.Parallel()

	process := newFakeProcess()
	invoker := &fakeInvoker{processes: []*fakeProcess{process}}
	w := New(context.Background(), invoker, nil)

	if err := w.Send(startCommand("B")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	invoker.waitCalls(t, 1)
	process.finish(domain.Completion{Kind: domain.CompletionFailure, Err: errors.New("process exited 1")})

	event, ok := waitEvent(t, w).(domain.ErrorEvent)
	if !ok {
		t.Fatalf("expected error event")
	}
	if event.Message() != "process exited 1" {
		t.Fatalf("unexpected cause: %q", event.Message())
	}
}

func TestWorkerSpawnFailureEmitsError(t *testing.T) {
	t.Parallel()

	invoker := &fakeInvoker{err: errors.New("exec: not found")}
	w := New(context.Background(), invoker, nil)

	if err := w.Send(startCommand("C")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	event, ok := waitEvent(t, w).(domain.ErrorEvent)
	if !ok || !strings.Contains(event.Message(), "not found") {
		t.Fatalf("expected spawn error event, got %#v", event)
	}
}

func TestWorkerAcceptsOnlyFirstStart(t *testing.T) {
	t.Parallel()

	process := newFakeProcess()
	invoker := &fakeInvoker{processes: []*fakeProcess{process, newFakeProcess()}}
	w := New(context.Background(), invoker, nil)

	_ = w.Send(startCommand("A"))
	_ = w.Send(startCommand("A"))
	invoker.waitCalls(t, 1)
	process.finish(domain.Completion{Kind: domain.CompletionSuccess})
	waitEvent(t, w)

	if got := invoker.callCount(); got != 1 {
		t.Fatalf("expected exactly one encoder start, got %d", got)
	}
}

func TestWorkerStopWhileIdle(t *testing.T) {
	t.Parallel()

	invoker := &fakeInvoker{}
	w := New(context.Background(), invoker, nil)
	if err := w.Send(domain.StopCommand{}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, ok := waitEvent(t, w).(domain.CloseEvent); !ok {
		t.Fatalf("expected close event")
	}
	if invoker.callCount() != 0 {
		t.Fatalf("idle stop must not start an encoder")
	}
}

func TestWorkerRejectsCommandsAfterTermination(t *testing.T) {
	t.Parallel()

	w := New(context.Background(), &fakeInvoker{}, nil)
	_ = w.Send(domain.StopCommand{})
	waitEvent(t, w)
	<-w.Done()

	if err := w.Send(startCommand("A")); !errors.Is(err, ErrWorkerTerminated) {
		t.Fatalf("expected ErrWorkerTerminated, got %v", err)
	}
}

func TestWorkerNeverAcceptsCommandAfterTerminating(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		invoker := &fakeInvoker{}
		w := New(context.Background(), invoker, nil)
		if err := w.Send(domain.StopCommand{}); err != nil {
			t.Fatalf("stop failed: %v", err)
		}
		if err := w.Send(startCommand("A")); !errors.Is(err, ErrWorkerTerminated) {
			t.Fatalf("start after stop must be rejected, got %v", err)
		}
		waitEvent(t, w)
		if invoker.callCount() != 0 {
			t.Fatalf("start after stop reached the encoder")
		}
	}
}

func TestWorkerKillForcesTermination(t *testing.T) {
	t.Parallel()

	process := newFakeProcess()
	process.exitOnKill = true
	invoker := &fakeInvoker{processes: []*fakeProcess{process}}
	w := New(context.Background(), invoker, nil)

	_ = w.Send(startCommand("A"))
	_ = w.Send(domain.StopCommand{})
	invoker.waitCalls(t, 1)
	w.Kill()
	w.Kill()

	if _, ok := waitEvent(t, w).(domain.CloseEvent); !ok {
		t.Fatalf("expected close after kill")
	}
	if process.kills() != 1 {
		t.Fatalf("expected one kill, got %d", process.kills())
	}
}

func TestFactoryWithoutInvoker(t *testing.T) {
	t.Parallel()

	_, err := NewFactory(nil, nil).NewWorker(context.Background())
	if !errors.Is(err, domain.ErrWorkerSpawn) {
		t.Fatalf("expected ErrWorkerSpawn, got %v", err)
	}

	w, err := NewFactory(&fakeInvoker{}, nil).NewWorker(context.Background())
	if err != nil || w.ID() == "" {
		t.Fatalf("expected worker with id, got %v %v", w, err)
	}
	w.Kill()
}

func TestServeStdioRelaysCommandsAndEvent(t *testing.T) {
	t.Parallel()

	process := newFakeProcess()
	process.exitOnInterrupt = true
	w := New(context.Background(), &fakeInvoker{processes: []*fakeProcess{process}}, nil)

	input := strings.NewReader(
		`{"type":"start","streamId":"A","sourceUrl":"rtmp://x","destinationPath":"/tmp/a.flv","encoderPath":"ffmpeg"}` + "\n" +
			"garbage\n" +
			`{"type":"stop"}` + "\n",
	)
	var out bytes.Buffer
	if err := ServeStdio(context.Background(), w, input, &out, nil); err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	if out.String() != "{\"type\":\"close\"}\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestServeStdioStopsWhenInputCloses(t *testing.T) {
	t.Parallel()

	process := newFakeProcess()
	process.exitOnInterrupt = true
	invoker := &fakeInvoker{processes: []*fakeProcess{process}}
	w := New(context.Background(), invoker, nil)

	reader, writer := io.Pipe()
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- ServeStdio(context.Background(), w, reader, &out, nil)
	}()

	_, _ = writer.Write([]byte(`{"type":"start","streamId":"A","sourceUrl":"rtmp://x","destinationPath":"/tmp/a.flv","encoderPath":"ffmpeg"}` + "\n"))
	invoker.waitCalls(t, 1)
	_ = writer.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not finish after input closed")
	}
	if process.interrupts() != 1 {
		t.Fatalf("expected encoder to be interrupted")
	}
}

func startCommand(id string) domain.StartCommand {
	return domain.StartCommand{StreamID: id, SourceURL: "rtmp://example/" + id, DestinationPath: "/tmp/" + id + ".flv", EncoderPath: "ffmpeg"}
}

func waitEvent(t *testing.T, w *Worker) domain.WorkerEvent {
	t.Helper()
	select {
	case event, ok := <-w.Events():
		if !ok {
			t.Fatalf("events closed without terminal event")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for terminal event")
	}
	return nil
}

func assertEventsClosed(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case _, ok := <-w.Events():
		if ok {
			t.Fatalf("expected exactly one terminal event")
		}
	case <-time.After(time.Second):
		t.Fatalf("events channel never closed")
	}
}

type fakeInvoker struct {
	mu        sync.Mutex
	processes []*fakeProcess
	err       error
	calls     int
}

func (f *fakeInvoker) Start(_ context.Context, _ string, _ string, _ string) (ports.EncoderProcess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.processes) {
		return nil, errors.New("no process configured")
	}
	p := f.processes[f.calls]
	f.calls++
	return p, nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeInvoker) waitCalls(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.callCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d encoder starts, got %d", n, f.callCount())
}

type fakeProcess struct {
	mu              sync.Mutex
	done            chan domain.Completion
	finished        bool
	exitOnInterrupt bool
	exitOnKill      bool
	interruptCalls  int
	killCalls       int
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{done: make(chan domain.Completion, 1)}
}

func (f *fakeProcess) Done() <-chan domain.Completion { return f.done }

func (f *fakeProcess) Interrupt() error {
	f.mu.Lock()
	f.interruptCalls++
	exit := f.exitOnInterrupt
	f.mu.Unlock()
	if exit {
		f.finish(domain.Completion{Kind: domain.CompletionKilled})
	}
	return nil
}

func (f *fakeProcess) Kill() error {
	f.mu.Lock()
	f.killCalls++
	exit := f.exitOnKill
	f.mu.Unlock()
	if exit {
		f.finish(domain.Completion{Kind: domain.CompletionKilled})
	}
	return nil
}

func (f *fakeProcess) finish(c domain.Completion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished {
		return
	}
	f.finished = true
	f.done <- c
	close(f.done)
}

func (f *fakeProcess) interrupts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interruptCalls
}

func (f *fakeProcess) kills() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.killCalls
}

package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pro-prompt-builder/internal/metrics"
	"pro-prompt-builder/internal/notify"
	"pro-prompt-builder/internal/promptform"
)

const (
	DefaultDuration = 3500 * time.Millisecond
	DefaultTick     = 50 * time.Millisecond

	MessageValidation = "لطفاً تمام فیلدهای ستاره‌دار را پر کنید."
	MessageFailed     = "خطا در تولید پرامپت"
)

var ErrBusy = errors.New("generation already running")

// Backend turns a composed instruction into the final prompt text.
type Backend interface {
	Generate(ctx context.Context, instruction string) (string, error)
}

type BackendFunc func(ctx context.Context, instruction string) (string, error)

func (f BackendFunc) Generate(ctx context.Context, instruction string) (string, error) {
	return f(ctx, instruction)
}

type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return "generation backend: " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

type Options struct {
	Backend  Backend
	Notifier notify.Emitter
	Logger   *slog.Logger

	Duration       time.Duration
	Tick           time.Duration
	BackendTimeout time.Duration

	// OnProgress is called from the clock goroutine after each progress step
	// and once more with the terminal session.
	OnProgress func(Session)
}

// Orchestrator runs one generation attempt at a time. While Running, a
// progress clock and the backend call proceed concurrently; the attempt
// succeeds only after both finished, so a result is never shown before the
// full duration.
type Orchestrator struct {
	backend        Backend
	notifier       notify.Emitter
	logger         *slog.Logger
	duration       time.Duration
	tick           time.Duration
	backendTimeout time.Duration
	onProgress     func(Session)

	mu         sync.Mutex
	state      State
	session    Session
	lastResult string
	done       chan struct{}
}

func New(opts Options) *Orchestrator {
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	if tick > duration {
		tick = duration
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	done := make(chan struct{})
	close(done)

	return &Orchestrator{
		backend:        opts.Backend,
		notifier:       opts.Notifier,
		logger:         logger,
		duration:       duration,
		tick:           tick,
		backendTimeout: opts.BackendTimeout,
		onProgress:     opts.OnProgress,
		state:          StateIdle,
		done:           done,
	}
}

// Generate validates r and, when valid, starts a new attempt in the
// background. It never blocks on the backend.
func (o *Orchestrator) Generate(ctx context.Context, r promptform.Record) (Session, error) {
	o.mu.Lock()
	if o.state == StateRunning {
		current := o.session
		o.mu.Unlock()
		metrics.GenerationTotal.WithLabelValues("busy").Inc()
		return current, ErrBusy
	}

	o.state = StateValidating
	if err := promptform.Validate(r); err != nil {
		o.state = StateIdle
		o.mu.Unlock()

		metrics.GenerationTotal.WithLabelValues("rejected").Inc()
		o.logger.Debug("generation rejected", "err", err)
		o.emit(MessageValidation)
		return Session{State: StateIdle}, err
	}

	if o.backend == nil {
		o.state = StateIdle
		o.mu.Unlock()
		return Session{State: StateIdle}, errors.New("generation backend is nil")
	}

	sess := Session{
		ID:        uuid.NewString(),
		State:     StateRunning,
		StartedAt: time.Now(),
	}
	done := make(chan struct{})
	o.session = sess
	o.state = StateRunning
	o.done = done
	o.mu.Unlock()

	instruction := promptform.BuildInstruction(r)
	o.logger.Info("generation started", "session_id", sess.ID)

	go o.run(context.WithoutCancel(ctx), sess, instruction, done)
	return sess, nil
}

func (o *Orchestrator) run(ctx context.Context, sess Session, instruction string, done chan struct{}) {
	defer close(done)

	var result string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.runClock(gctx, sess.ID)
		return nil
	})

	g.Go(func() error {
		callCtx := gctx
		if o.backendTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(gctx, o.backendTimeout)
			defer cancel()
		}

		began := time.Now()
		text, err := o.backend.Generate(callCtx, instruction)
		metrics.BackendDuration.Observe(time.Since(began).Seconds())
		if err != nil {
			return &BackendError{Err: err}
		}
		result = text
		return nil
	})

	err := g.Wait()
	metrics.SessionDuration.Observe(time.Since(sess.StartedAt).Seconds())
	o.finish(sess.ID, result, err)
}

// runClock advances progress every tick and returns once the full duration
// has elapsed, or early when the attempt is cancelled by a backend failure.
func (o *Orchestrator) runClock(ctx context.Context, id string) {
	steps := int(o.duration / o.tick)
	if steps < 1 {
		steps = 1
	}

	deadline := time.NewTimer(o.duration)
	defer deadline.Stop()
	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	step := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			o.setProgress(id, 1)
			return
		case <-ticker.C:
			step++
			progress := float64(step) / float64(steps)
			if progress > 1 {
				progress = 1
			}
			o.setProgress(id, progress)
		}
	}
}

func (o *Orchestrator) setProgress(id string, progress float64) {
	o.mu.Lock()
	if o.session.ID != id || o.session.State != StateRunning || progress <= o.session.Progress {
		o.mu.Unlock()
		return
	}
	o.session.Progress = progress
	snapshot := o.session
	o.mu.Unlock()

	if o.onProgress != nil {
		o.onProgress(snapshot)
	}
}

func (o *Orchestrator) finish(id, result string, err error) {
	o.mu.Lock()
	if o.session.ID != id {
		o.mu.Unlock()
		return
	}

	sess := o.session
	sess.FinishedAt = time.Now()
	if err != nil {
		sess.State = StateFailed
		sess.Err = err
		o.state = StateIdle
	} else {
		sess.State = StateSucceeded
		sess.Progress = 1
		sess.Result = result
		o.state = StateSucceeded
		o.lastResult = result
	}
	o.session = sess
	o.mu.Unlock()

	if err != nil {
		metrics.GenerationTotal.WithLabelValues("failed").Inc()
		o.logger.Error("generation failed", "session_id", id, "err", err)
		o.emit(MessageFailed)
	} else {
		metrics.GenerationTotal.WithLabelValues("succeeded").Inc()
		o.logger.Info("generation succeeded", "session_id", id, "dur_ms", sess.FinishedAt.Sub(sess.StartedAt).Milliseconds())
	}

	if o.onProgress != nil {
		o.onProgress(sess)
	}
}

func (o *Orchestrator) emit(message string) {
	if o.notifier != nil {
		o.notifier.Emit(message, notify.KindError)
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the most recent attempt.
func (o *Orchestrator) Snapshot() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Result is the last successful prompt; it survives later failed attempts.
func (o *Orchestrator) Result() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastResult
}

// Done is closed when the current attempt reaches a terminal state. With no
// attempt in flight the returned channel is already closed.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

func (o *Orchestrator) Wait(ctx context.Context) (Session, error) {
	select {
	case <-o.Done():
		return o.Snapshot(), nil
	case <-ctx.Done():
		return o.Snapshot(), ctx.Err()
	}
}

func (o *Orchestrator) Duration() time.Duration { return o.duration }

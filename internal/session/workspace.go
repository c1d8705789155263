package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"pro-prompt-builder/internal/generation"
	"pro-prompt-builder/internal/metrics"
	"pro-prompt-builder/internal/notify"
	"pro-prompt-builder/internal/promptform"
	"pro-prompt-builder/internal/styles"
)

const (
	MessageSaved        = "استایل‌ها با موفقیت ذخیره شدند."
	MessageLoaded       = "استایل‌ها با موفقیت بارگذاری شدند."
	MessageInvalidFile  = "فایل نامعتبر یا فرمت اشتباه است."
	MessageSnippetCopy  = "کد استایل‌ها کپی شد!"
	MessageResultCopied = "کپی شد!"
)

var ErrNoResult = errors.New("no generated prompt yet")

type Options struct {
	Backend generation.Backend
	Logger  *slog.Logger

	Duration       time.Duration
	Tick           time.Duration
	BackendTimeout time.Duration

	SessionTTL time.Duration
	ToastTTL   time.Duration

	OnProgress func(generation.Session)
}

// Workspace owns one record together with its orchestrator and notification
// channels. Every record mutation goes through the workspace mutex.
type Workspace struct {
	mu           sync.Mutex
	record       promptform.Record
	lastActivity time.Time

	orch   *generation.Orchestrator
	center *notify.Center
	logger *slog.Logger
}

func NewWorkspace(opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	center := notify.NewCenter(notify.CenterOptions{
		SessionTTL: opts.SessionTTL,
		ToastTTL:   opts.ToastTTL,
	})

	orch := generation.New(generation.Options{
		Backend:        opts.Backend,
		Notifier:       center.Session,
		Logger:         logger,
		Duration:       opts.Duration,
		Tick:           opts.Tick,
		BackendTimeout: opts.BackendTimeout,
		OnProgress:     opts.OnProgress,
	})

	return &Workspace{
		record:       promptform.New(),
		lastActivity: time.Now(),
		orch:         orch,
		center:       center,
		logger:       logger,
	}
}

// Record returns a copy of the current record.
func (w *Workspace) Record() promptform.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.record.Clone()
}

func (w *Workspace) Update(field promptform.Field, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	return w.record.Update(field, value)
}

// Select adds option to a sequence field. A duplicate is reported on the
// toast channel and returned as promptform.ErrAlreadySelected.
func (w *Workspace) Select(field promptform.Field, option string) error {
	w.mu.Lock()
	w.touchLocked()
	err := w.record.Select(field, option)
	w.mu.Unlock()

	if errors.Is(err, promptform.ErrAlreadySelected) {
		w.center.Toast.Emit(fmt.Sprintf("\"%s\" قبلاً انتخاب شده است.", option), notify.KindError)
	}
	return err
}

func (w *Workspace) Deselect(field promptform.Field, option string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	return w.record.Deselect(field, option)
}

// Toggle selects option, or deselects it when already present.
func (w *Workspace) Toggle(field promptform.Field, option string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	for _, v := range w.record.List(field) {
		if v == option {
			return false, w.record.Deselect(field, option)
		}
	}
	if err := w.record.Select(field, option); err != nil {
		return false, err
	}
	return true, nil
}

// Generate starts an attempt on a snapshot of the record. Edits made while
// the attempt runs do not affect it.
func (w *Workspace) Generate(ctx context.Context) (generation.Session, error) {
	snapshot := w.Record()
	w.mu.Lock()
	w.touchLocked()
	w.mu.Unlock()
	return w.orch.Generate(ctx, snapshot)
}

// SaveStyles returns the style document for the current record.
func (w *Workspace) SaveStyles() ([]byte, error) {
	raw, err := styles.Export(w.Record())
	if err != nil {
		return nil, err
	}
	w.center.Session.Emit(MessageSaved, notify.KindSuccess)
	return raw, nil
}

// LoadStyles merges a style document into the record. A document that is not
// a JSON object leaves the record untouched.
func (w *Workspace) LoadStyles(raw []byte) (styles.ImportReport, error) {
	w.mu.Lock()
	w.touchLocked()
	merged, report, err := styles.Import(w.record, raw)
	if err == nil {
		w.record = merged
	}
	w.mu.Unlock()

	if err != nil {
		metrics.StyleImportsTotal.WithLabelValues("invalid").Inc()
		w.logger.Warn("style import rejected", "err", err)
		w.center.Session.Emit(MessageInvalidFile, notify.KindError)
		return report, err
	}

	result := "ok"
	if len(report.Skipped) > 0 {
		result = "partial"
		for _, s := range report.Skipped {
			w.logger.Debug("style field skipped", "field", s.Field, "err", s.Err)
		}
	}
	metrics.StyleImportsTotal.WithLabelValues(result).Inc()
	w.center.Session.Emit(MessageLoaded, notify.KindSuccess)
	return report, nil
}

func (w *Workspace) Snippet() (string, error) {
	return styles.Snippet(w.Record())
}

// CopySnippet returns the snippet and confirms the copy on the toast channel.
func (w *Workspace) CopySnippet() (string, error) {
	snippet, err := w.Snippet()
	if err != nil {
		return "", err
	}
	w.center.Toast.Emit(MessageSnippetCopy, notify.KindSuccess)
	return snippet, nil
}

func (w *Workspace) CopyResult() (string, error) {
	result := w.orch.Result()
	if result == "" {
		return "", ErrNoResult
	}
	w.center.Toast.Emit(MessageResultCopied, notify.KindSuccess)
	return result, nil
}

// Reset puts the record back to its defaults and drops pending notifications.
// A running attempt is left to finish.
func (w *Workspace) Reset() {
	w.mu.Lock()
	w.record = promptform.New()
	w.touchLocked()
	w.mu.Unlock()

	w.center.Session.Clear()
	w.center.Toast.Clear()
}

func (w *Workspace) Orchestrator() *generation.Orchestrator { return w.orch }

func (w *Workspace) Notifications() *notify.Center { return w.center }

func (w *Workspace) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActivity
}

func (w *Workspace) touchLocked() {
	w.lastActivity = time.Now()
}

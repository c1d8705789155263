package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pro-prompt-builder/internal/coalesce"
	"pro-prompt-builder/internal/generation"
	"pro-prompt-builder/internal/notify"
	"pro-prompt-builder/internal/promptform"
	"pro-prompt-builder/internal/session"
	"pro-prompt-builder/internal/styles"
	"pro-prompt-builder/internal/telegram"
)

const maxStyleFileBytes = 64 << 10

// Messenger is the part of the Telegram client the handler talks to.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	EditText(chatID int64, messageID int, text string) error
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
	DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

type Options struct {
	Telegram  Messenger
	Workspace session.Options
	Logger    *slog.Logger

	ProgressEditInterval time.Duration
}

type Handler struct {
	tg         Messenger
	workspaces *session.Store
	logger     *slog.Logger

	inputs *pendingInputs
	edits  *coalesce.Coalescer[string, generation.Session]

	viewsMu sync.Mutex
	views   map[string]*progressView
}

// progressView is the message that shows one generation attempt.
type progressView struct {
	mu        sync.Mutex
	chatID    int64
	ownerID   int64
	messageID int
	final     *generation.Session
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h := &Handler{
		tg:     opts.Telegram,
		logger: logger,
		inputs: newPendingInputs(),
		views:  make(map[string]*progressView),
	}
	h.edits = coalesce.New(coalesce.Options[string, generation.Session]{
		Interval: opts.ProgressEditInterval,
		OnFlush:  h.flushProgress,
	})
	h.workspaces = session.NewStore(session.StoreOptions{
		Workspace:  opts.Workspace,
		OnProgress: h.onProgress,
		OnNotify:   h.onNotify,
	})
	return h
}

func (h *Handler) Workspaces() *session.Store { return h.workspaces }

// Close drops pending progress edits.
func (h *Handler) Close() { h.edits.Stop() }

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	key := session.Key{ChatID: msg.Chat.ID, UserID: msg.From.ID}

	switch {
	case msg.IsCommand():
		return h.handleCommand(ctx, key, msg)
	case msg.Document != nil:
		return h.handleDocument(ctx, key, msg.Document)
	case strings.TrimSpace(msg.Text) != "":
		return h.handleText(key, msg.Text)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, key session.Key, msg *tgbotapi.Message) error {
	chatID := key.ChatID
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	ws := h.workspaces.Get(key)

	if field, ok := textCommands[command]; ok {
		if args == "" {
			h.inputs.await(key, field)
			return h.tg.SendText(chatID, fmt.Sprintf("✏️ %s را بنویسید (لغو: /cancel).", promptform.Label(field)))
		}
		return h.setText(key, field, args)
	}

	switch command {
	case "start", "help":
		return h.sendMenu(chatID, key.UserID, ws.Record(), helpText)
	case "styles":
		return h.sendMenu(chatID, key.UserID, ws.Record(), "")
	case "ratio":
		if args != "" {
			return h.setText(key, promptform.FieldAspectRatio, args)
		}
		_, err := h.tg.SendTextWithKeyboard(chatID, promptform.Label(promptform.FieldAspectRatio), ratioKeyboard(key.UserID, ws.Record()))
		return err
	case "state":
		return h.tg.SendText(chatID, summaryText(ws.Record()))
	case "cancel":
		h.inputs.clear(key)
		return h.tg.SendText(chatID, "لغو شد.")
	case "generate":
		return h.generate(ctx, key)
	case "save":
		return h.saveStyles(key)
	case "code":
		return h.sendSnippet(key)
	case "result":
		return h.sendResult(key)
	case "reset":
		h.inputs.clear(key)
		ws.Reset()
		return h.sendMenu(chatID, key.UserID, ws.Record(), "🔄 فرم پاک شد.")
	default:
		return h.tg.SendText(chatID, "دستور ناشناخته است. /help را ببینید.")
	}
}

func (h *Handler) handleText(key session.Key, text string) error {
	field, ok := h.inputs.take(key)
	if !ok {
		return h.tg.SendText(key.ChatID, "برای شروع /start را بزنید.")
	}
	return h.setText(key, field, text)
}

func (h *Handler) setText(key session.Key, field promptform.Field, value string) error {
	ws := h.workspaces.Get(key)
	err := ws.Update(field, strings.TrimSpace(value))
	switch {
	case errors.Is(err, promptform.ErrColor):
		h.inputs.await(key, field)
		return h.tg.SendText(key.ChatID, "❌ رنگ نامعتبر است. مثال: #ff8800")
	case errors.Is(err, promptform.ErrAspectRatio):
		return h.tg.SendText(key.ChatID, "❌ ابعاد نامعتبر است: "+strings.Join(promptform.AspectRatios(), " "))
	case err != nil:
		return err
	}
	return h.tg.SendText(key.ChatID, fmt.Sprintf("✅ %s ثبت شد.", promptform.Label(field)))
}

func (h *Handler) handleDocument(ctx context.Context, key session.Key, doc *tgbotapi.Document) error {
	if !isStyleDocument(doc) {
		return h.tg.SendText(key.ChatID, "فقط فایل JSON استایل‌ها پذیرفته می‌شود.")
	}

	raw, err := h.tg.DownloadFile(ctx, doc.FileID, maxStyleFileBytes)
	if errors.Is(err, telegram.ErrFileTooLarge) {
		return h.tg.SendText(key.ChatID, session.MessageInvalidFile)
	}
	if err != nil {
		h.logger.Error("style file download failed", "err", err)
		return h.tg.SendText(key.ChatID, "❌ دریافت فایل ناموفق بود.")
	}

	ws := h.workspaces.Get(key)
	report, err := ws.LoadStyles(raw)
	var perr *styles.ParseError
	if errors.As(err, &perr) {
		return nil
	}
	if err != nil {
		return err
	}

	if len(report.Skipped) > 0 {
		labels := make([]string, 0, len(report.Skipped))
		for _, s := range report.Skipped {
			labels = append(labels, promptform.Label(s.Field))
		}
		_ = h.tg.SendText(key.ChatID, "⚠️ این موارد نادیده گرفته شدند: "+strings.Join(labels, "، "))
	}
	return h.sendMenu(key.ChatID, key.UserID, ws.Record(), "")
}

func (h *Handler) generate(ctx context.Context, key session.Key) error {
	ws := h.workspaces.Get(key)

	sess, err := ws.Generate(ctx)
	var verr *promptform.ValidationError
	switch {
	case errors.Is(err, generation.ErrBusy):
		return h.tg.SendText(key.ChatID, "⏳ تولید قبلی هنوز تمام نشده است.")
	case errors.As(err, &verr):
		return nil
	case err != nil:
		return err
	}

	h.tg.SendTyping(key.ChatID)
	view := h.viewFor(sess.ID, key)
	msgID, err := h.tg.SendTextWithKeyboard(key.ChatID, progressText(sess), telegram.Keyboard{})
	if err != nil {
		h.dropView(sess.ID)
		return err
	}
	h.attachView(sess.ID, view, msgID)
	return nil
}

func (h *Handler) saveStyles(key session.Key) error {
	raw, err := h.workspaces.Get(key).SaveStyles()
	if err != nil {
		return err
	}
	return h.tg.SendDocument(key.ChatID, styles.FileName, raw, "")
}

func (h *Handler) sendSnippet(key session.Key) error {
	snippet, err := h.workspaces.Get(key).CopySnippet()
	if err != nil {
		return err
	}
	return h.tg.SendText(key.ChatID, snippet)
}

func (h *Handler) sendResult(key session.Key) error {
	result, err := h.workspaces.Get(key).CopyResult()
	if errors.Is(err, session.ErrNoResult) {
		return h.tg.SendText(key.ChatID, "هنوز پرامپتی تولید نشده است. /generate")
	}
	if err != nil {
		return err
	}
	return h.tg.SendText(key.ChatID, result)
}

func (h *Handler) onNotify(key session.Key, channel string, n notify.Notification) {
	// Toasts are answered inline by the action that raised them.
	if channel != "session" {
		return
	}
	icon := "✅ "
	if n.Kind == notify.KindError {
		icon = "⚠️ "
	}
	if err := h.tg.SendText(key.ChatID, icon+n.Message); err != nil {
		h.logger.Warn("notification push failed", "chat_id", key.ChatID, "err", err)
	}
}

func (h *Handler) onProgress(key session.Key, sess generation.Session) {
	if !sess.Terminal() {
		h.edits.Add(sess.ID, sess)
		return
	}
	h.edits.Cancel(sess.ID)

	view := h.viewFor(sess.ID, key)
	view.mu.Lock()
	defer view.mu.Unlock()
	final := sess
	view.final = &final
	if view.messageID != 0 {
		h.renderFinal(view)
		h.dropView(sess.ID)
	}
}

func (h *Handler) flushProgress(id string, sess generation.Session) {
	h.viewsMu.Lock()
	view, ok := h.views[id]
	h.viewsMu.Unlock()
	if !ok {
		return
	}

	view.mu.Lock()
	defer view.mu.Unlock()
	if view.final != nil || view.messageID == 0 {
		return
	}
	if err := h.tg.EditText(view.chatID, view.messageID, progressText(sess)); err != nil {
		h.logger.Debug("progress edit failed", "err", err)
	}
}

func (h *Handler) viewFor(id string, key session.Key) *progressView {
	h.viewsMu.Lock()
	defer h.viewsMu.Unlock()
	view, ok := h.views[id]
	if !ok {
		view = &progressView{chatID: key.ChatID, ownerID: key.UserID}
		h.views[id] = view
	}
	return view
}

func (h *Handler) attachView(id string, view *progressView, messageID int) {
	view.mu.Lock()
	defer view.mu.Unlock()
	view.messageID = messageID
	if view.final != nil {
		h.renderFinal(view)
		h.dropView(id)
	}
}

func (h *Handler) dropView(id string) {
	h.viewsMu.Lock()
	defer h.viewsMu.Unlock()
	delete(h.views, id)
}

// renderFinal must be called with view.mu held.
func (h *Handler) renderFinal(view *progressView) {
	sess := *view.final
	if sess.State != generation.StateSucceeded {
		_ = h.tg.EditText(view.chatID, view.messageID, "⛔️ تولید پرامپت متوقف شد.")
		return
	}

	_ = h.tg.EditText(view.chatID, view.messageID, progressText(sess))
	if _, err := h.tg.SendTextWithKeyboard(view.chatID, resultText(sess.Result), resultKeyboard(view.ownerID)); err != nil {
		h.logger.Error("result send failed", "err", err)
	}
}

func (h *Handler) sendMenu(chatID, ownerID int64, r promptform.Record, header string) error {
	text := summaryText(r)
	if header != "" {
		text = header + "\n\n" + text
	}
	_, err := h.tg.SendTextWithKeyboard(chatID, text, mainKeyboard(ownerID, r))
	return err
}

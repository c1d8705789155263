package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pro-prompt-builder/internal/generation"
	"pro-prompt-builder/internal/promptform"
	"pro-prompt-builder/internal/session"
	"pro-prompt-builder/internal/telegram"
)

const callbackPrefix = "pp"

const helpText = `🎨 سازنده پرامپت حرفه‌ای

فیلدهای ستاره‌دار را پر کنید، سبک‌ها را از منو انتخاب کنید و /generate را بزنید.

/subject سوژه *
/place زمان و مکان *
/action فعل و موقعیت کاری *
/env محیط و بک‌گراند
/negative کلمات سلبی
/color رنگ خاص (#rrggbb)
/ratio ابعاد تصویر
/styles منوی سبک‌ها
/generate تولید پرامپت
/save ذخیره استایل‌ها (فایل JSON)
/code کد استایل‌ها
/result آخرین پرامپت
/reset پاک کردن فرم

برای بارگذاری استایل‌ها فایل styles.json را بفرستید.`

type callback struct {
	ownerID int64
	action  string
	args    []string
}

func parseCallback(data string) (callback, bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return callback{}, false
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	return callback{ownerID: ownerID, action: parts[2], args: parts[3:]}, true
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	c, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if c.ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "این منو برای شما نیست.", true)
		return nil
	}

	key := session.Key{ChatID: q.Message.Chat.ID, UserID: c.ownerID}
	msgID := q.Message.MessageID
	ws := h.workspaces.Get(key)
	began := time.Now()

	switch c.action {
	case "menu":
		field := promptform.Field("")
		if len(c.args) > 0 {
			field = promptform.Field(c.args[0])
		}
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.renderMenu(key, msgID, field)

	case "opt":
		field, option, ok := optionFromArgs(c.args)
		if !ok {
			_ = h.tg.AnswerCallback(q.ID, "", false)
			return nil
		}
		if _, err := ws.Toggle(field, option); err != nil {
			return err
		}
		_ = h.tg.AnswerCallback(q.ID, option, false)
		return h.renderMenu(key, msgID, field)

	case "ratio":
		ratios := promptform.AspectRatios()
		idx := argIndex(c.args, 0, len(ratios))
		if idx < 0 {
			_ = h.tg.AnswerCallback(q.ID, "", false)
			return nil
		}
		if err := ws.Update(promptform.FieldAspectRatio, ratios[idx]); err != nil {
			return err
		}
		_ = h.tg.AnswerCallback(q.ID, ratios[idx], false)
		return h.renderMenu(key, msgID, promptform.FieldAspectRatio)

	case "gen":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.generate(ctx, key)

	case "save":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.saveStyles(key)

	case "code":
		snippet, err := ws.CopySnippet()
		if err != nil {
			return err
		}
		h.answerWithToast(q.ID, ws, began)
		return h.tg.SendText(key.ChatID, snippet)

	case "copy":
		result, err := ws.CopyResult()
		if errors.Is(err, session.ErrNoResult) {
			_ = h.tg.AnswerCallback(q.ID, "هنوز پرامپتی تولید نشده است.", false)
			return nil
		}
		if err != nil {
			return err
		}
		h.answerWithToast(q.ID, ws, began)
		return h.tg.SendText(key.ChatID, result)

	case "close":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.tg.EditText(key.ChatID, msgID, summaryText(ws.Record()))

	default:
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return nil
	}
}

// answerWithToast shows the toast raised since began as the callback answer.
func (h *Handler) answerWithToast(callbackID string, ws *session.Workspace, began time.Time) {
	text := ""
	if n, ok := ws.Notifications().Toast.Current(); ok && !n.CreatedAt.Before(began) {
		text = n.Message
	}
	_ = h.tg.AnswerCallback(callbackID, text, false)
}

func (h *Handler) renderMenu(key session.Key, msgID int, field promptform.Field) error {
	r := h.workspaces.Get(key).Record()

	text := summaryText(r)
	kb := mainKeyboard(key.UserID, r)
	switch {
	case field == promptform.FieldAspectRatio:
		text = promptform.Label(field) + ": " + r.AspectRatio()
		kb = ratioKeyboard(key.UserID, r)
	case promptform.IsList(field):
		text = promptform.Label(field) + ": " + listOrDash(r.List(field))
		kb = optionsKeyboard(key.UserID, field, r)
	}

	if msgID != 0 {
		if err := h.tg.EditTextWithKeyboard(key.ChatID, msgID, text, kb); err == nil {
			return nil
		}
	}
	_, err := h.tg.SendTextWithKeyboard(key.ChatID, text, kb)
	return err
}

func optionFromArgs(args []string) (promptform.Field, string, bool) {
	if len(args) < 2 {
		return "", "", false
	}
	field, ok := promptform.ParseField(args[0])
	if !ok || !promptform.IsList(field) {
		return "", "", false
	}
	options := promptform.Options(field)
	idx := argIndex(args, 1, len(options))
	if idx < 0 {
		return "", "", false
	}
	return field, options[idx], true
}

func argIndex(args []string, pos, n int) int {
	if pos >= len(args) {
		return -1
	}
	idx, err := strconv.Atoi(args[pos])
	if err != nil || idx < 0 || idx >= n {
		return -1
	}
	return idx
}

func mainKeyboard(ownerID int64, r promptform.Record) telegram.Keyboard {
	var rows [][]telegram.KeyboardButton
	var row []telegram.KeyboardButton

	for _, opt := range promptform.SelectableFields() {
		label := opt.Name
		if promptform.IsList(opt.Field) {
			if n := len(r.List(opt.Field)); n > 0 {
				label = fmt.Sprintf("%s (%d)", label, n)
			}
		} else {
			label = fmt.Sprintf("%s (%s)", label, r.AspectRatio())
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "menu", string(opt.Field))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows,
		[]telegram.KeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✨ تولید پرامپت", cb(ownerID, "gen")),
		},
		[]telegram.KeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("💾 ذخیره استایل‌ها", cb(ownerID, "save")),
			tgbotapi.NewInlineKeyboardButtonData("📋 کد استایل‌ها", cb(ownerID, "code")),
		},
		[]telegram.KeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("بستن", cb(ownerID, "close")),
		},
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func optionsKeyboard(ownerID int64, field promptform.Field, r promptform.Record) telegram.Keyboard {
	selected := make(map[string]bool)
	for _, v := range r.List(field) {
		selected[v] = true
	}

	var rows [][]telegram.KeyboardButton
	var row []telegram.KeyboardButton
	for i, opt := range promptform.Options(field) {
		label := opt
		if selected[opt] {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "opt", string(field), strconv.Itoa(i))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []telegram.KeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ بازگشت", cb(ownerID, "menu", "main")),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func ratioKeyboard(ownerID int64, r promptform.Record) telegram.Keyboard {
	var rows [][]telegram.KeyboardButton
	var row []telegram.KeyboardButton
	for i, ratio := range promptform.AspectRatios() {
		label := ratio
		if ratio == r.AspectRatio() {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "ratio", strconv.Itoa(i))))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []telegram.KeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ بازگشت", cb(ownerID, "menu", "main")),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func resultKeyboard(ownerID int64) telegram.Keyboard {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]telegram.KeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📋 کپی پرامپت", cb(ownerID, "copy")),
			tgbotapi.NewInlineKeyboardButtonData("✨ دوباره", cb(ownerID, "gen")),
		},
	)
}

func summaryText(r promptform.Record) string {
	var b strings.Builder
	b.WriteString("📝 فرم پرامپت\n\n")

	for _, field := range promptform.Fields() {
		label := promptform.Label(field)
		if c, _ := promptform.CategoryOf(field); c == promptform.CategoryIdentity {
			label += " *"
		}

		value := r.Text(field)
		if promptform.IsList(field) {
			value = listOrDash(r.List(field))
		} else if strings.TrimSpace(value) == "" {
			value = "—"
		}
		b.WriteString(label + ": " + value + "\n")
	}
	return strings.TrimSpace(b.String())
}

func progressText(sess generation.Session) string {
	if sess.State == generation.StateSucceeded {
		return "✅ پرامپت آماده شد.\n" + progressBar(1, 10) + " 100%"
	}
	return fmt.Sprintf("⏳ در حال تولید پرامپت...\n%s %d%%", progressBar(sess.Progress, 10), sess.Percent())
}

func progressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func resultText(result string) string {
	return "✨ پرامپت نهایی:\n\n" + result
}

func listOrDash(values []string) string {
	if len(values) == 0 {
		return "—"
	}
	return strings.Join(values, "، ")
}

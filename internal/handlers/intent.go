package handlers

import (
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pro-prompt-builder/internal/promptform"
	"pro-prompt-builder/internal/session"
)

// textCommands maps a command to the free-text field it fills.
var textCommands = map[string]promptform.Field{
	"subject":  promptform.FieldSubject,
	"place":    promptform.FieldTimePlace,
	"action":   promptform.FieldActionJob,
	"env":      promptform.FieldEnvironment,
	"negative": promptform.FieldNegativeWords,
	"color":    promptform.FieldCustomColor,
}

// pendingInputs remembers which field the next plain message fills.
type pendingInputs struct {
	mu     sync.Mutex
	fields map[session.Key]promptform.Field
}

func newPendingInputs() *pendingInputs {
	return &pendingInputs{fields: make(map[session.Key]promptform.Field)}
}

func (p *pendingInputs) await(key session.Key, field promptform.Field) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields[key] = field
}

func (p *pendingInputs) take(key session.Key) (promptform.Field, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	field, ok := p.fields[key]
	delete(p.fields, key)
	return field, ok
}

func (p *pendingInputs) clear(key session.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.fields, key)
}

func isStyleDocument(doc *tgbotapi.Document) bool {
	if doc == nil {
		return false
	}
	mime := strings.ToLower(strings.TrimSpace(doc.MimeType))
	if strings.HasPrefix(mime, "application/json") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(doc.FileName), ".json")
}

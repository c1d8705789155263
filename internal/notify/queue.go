package notify

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"pro-prompt-builder/internal/metrics"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notification struct {
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

// Emitter is the write side of a queue, the only thing business logic needs.
type Emitter interface {
	Emit(message string, kind Kind)
}

type Options struct {
	Name   string
	TTL    time.Duration
	OnEmit func(Notification)
}

// Queue holds at most one live notification. Emit replaces it and restarts
// its expiry; expired notifications are never returned.
type Queue struct {
	name   string
	ttl    time.Duration
	items  *cache.Cache
	mu     sync.Mutex
	onEmit func(Notification)
}

const currentKey = "current"

func NewQueue(opts Options) *Queue {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 3 * time.Second
	}

	return &Queue{
		name: opts.Name,
		ttl:  ttl,
		// No janitor: the single entry is overwritten on every Emit and
		// expiry is checked on read.
		items:  cache.New(ttl, 0),
		onEmit: opts.OnEmit,
	}
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) TTL() time.Duration { return q.ttl }

func (q *Queue) Emit(message string, kind Kind) {
	n := Notification{
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	q.items.Set(currentKey, n, q.ttl)
	metrics.NotificationsTotal.WithLabelValues(q.name, string(kind)).Inc()

	q.mu.Lock()
	onEmit := q.onEmit
	q.mu.Unlock()

	if onEmit != nil {
		onEmit(n)
	}
}

func (q *Queue) Current() (Notification, bool) {
	v, ok := q.items.Get(currentKey)
	if !ok {
		return Notification{}, false
	}
	n, ok := v.(Notification)
	return n, ok
}

func (q *Queue) Clear() {
	q.items.Delete(currentKey)
}

func (q *Queue) SetOnEmit(fn func(Notification)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onEmit = fn
}

type CenterOptions struct {
	SessionTTL time.Duration
	ToastTTL   time.Duration
}

// Center groups the two independent channels a workspace shows: session
// messages (save/load/generation) and short toasts (copy confirmations,
// duplicate selections).
type Center struct {
	Session *Queue
	Toast   *Queue
}

func NewCenter(opts CenterOptions) *Center {
	toastTTL := opts.ToastTTL
	if toastTTL <= 0 {
		toastTTL = 2 * time.Second
	}
	return &Center{
		Session: NewQueue(Options{Name: "session", TTL: opts.SessionTTL}),
		Toast:   NewQueue(Options{Name: "toast", TTL: toastTTL}),
	}
}

// SetOnEmit routes both channels to one push callback.
func (c *Center) SetOnEmit(fn func(channel string, n Notification)) {
	for _, q := range []*Queue{c.Session, c.Toast} {
		q := q
		if fn == nil {
			q.SetOnEmit(nil)
			continue
		}
		q.SetOnEmit(func(n Notification) { fn(q.Name(), n) })
	}
}

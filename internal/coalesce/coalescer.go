package coalesce

import (
	"sync"
	"time"
)

type Options[K comparable, V any] struct {
	Interval time.Duration
	OnFlush  func(key K, value V)
}

// Coalescer delivers at most one value per key per interval. Values added
// while a flush is pending replace each other; only the latest is delivered.
type Coalescer[K comparable, V any] struct {
	mu       sync.Mutex
	interval time.Duration
	onFlush  func(K, V)
	pending  map[K]*pendingValue[V]
}

type pendingValue[V any] struct {
	value V
	timer *time.Timer
}

func New[K comparable, V any](opts Options[K, V]) *Coalescer[K, V] {
	interval := opts.Interval
	if interval <= 0 {
		interval = 700 * time.Millisecond
	}

	return &Coalescer[K, V]{
		interval: interval,
		onFlush:  opts.OnFlush,
		pending:  make(map[K]*pendingValue[V]),
	}
}

func (c *Coalescer[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pv, ok := c.pending[key]; ok {
		pv.value = value
		return
	}

	pv := &pendingValue[V]{value: value}
	pv.timer = time.AfterFunc(c.interval, func() {
		c.flush(key, pv)
	})
	c.pending[key] = pv
}

// Cancel drops a pending value for key without delivering it.
func (c *Coalescer[K, V]) Cancel(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pv, ok := c.pending[key]; ok {
		pv.timer.Stop()
		delete(c.pending, key)
	}
}

// Stop cancels every pending value.
func (c *Coalescer[K, V]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, pv := range c.pending {
		pv.timer.Stop()
		delete(c.pending, key)
	}
}

func (c *Coalescer[K, V]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coalescer[K, V]) flush(key K, pv *pendingValue[V]) {
	c.mu.Lock()
	if c.pending[key] != pv {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	value := pv.value
	onFlush := c.onFlush
	c.mu.Unlock()

	if onFlush != nil {
		onFlush(key, value)
	}
}

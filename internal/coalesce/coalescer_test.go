package coalesce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type flushLog struct {
	mu   sync.Mutex
	seen map[string][]int
}

func (l *flushLog) record(key string, v int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = make(map[string][]int)
	}
	l.seen[key] = append(l.seen[key], v)
}

func (l *flushLog) get(key string) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.seen[key]...)
}

func TestAddDeliversLatestOnce(t *testing.T) {
	log := &flushLog{}
	c := New(Options[string, int]{Interval: 20 * time.Millisecond, OnFlush: log.record})

	c.Add("a", 1)
	c.Add("a", 2)
	c.Add("a", 3)
	c.Add("b", 10)

	require.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{3}, log.get("a"))
	assert.Equal(t, []int{10}, log.get("b"))
}

func TestAddAfterFlushStartsNewWindow(t *testing.T) {
	log := &flushLog{}
	c := New(Options[string, int]{Interval: 10 * time.Millisecond, OnFlush: log.record})

	c.Add("a", 1)
	require.Eventually(t, func() bool { return len(log.get("a")) == 1 }, time.Second, 2*time.Millisecond)
	c.Add("a", 2)
	require.Eventually(t, func() bool { return len(log.get("a")) == 2 }, time.Second, 2*time.Millisecond)

	assert.Equal(t, []int{1, 2}, log.get("a"))
}

func TestCancelDropsPending(t *testing.T) {
	log := &flushLog{}
	c := New(Options[string, int]{Interval: 20 * time.Millisecond, OnFlush: log.record})

	c.Add("a", 1)
	c.Cancel("a")
	c.Add("b", 2)
	c.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, log.get("a"))
	assert.Empty(t, log.get("b"))
	assert.Zero(t, c.Pending())
}

package session

import (
	"sync"
	"time"

	"pro-prompt-builder/internal/generation"
	"pro-prompt-builder/internal/notify"
)

// Key identifies one workspace: a user inside a chat.
type Key struct {
	ChatID int64
	UserID int64
}

type StoreOptions struct {
	Workspace Options

	OnProgress func(key Key, s generation.Session)
	OnNotify   func(key Key, channel string, n notify.Notification)
}

type Store struct {
	mu         sync.Mutex
	workspaces map[Key]*Workspace
	opts       StoreOptions
}

func NewStore(opts StoreOptions) *Store {
	return &Store{
		workspaces: make(map[Key]*Workspace),
		opts:       opts,
	}
}

// Get returns the workspace for key, creating it on first use.
func (s *Store) Get(key Key) *Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ws, ok := s.workspaces[key]; ok {
		return ws
	}

	wsOpts := s.opts.Workspace
	if s.opts.OnProgress != nil {
		onProgress := s.opts.OnProgress
		wsOpts.OnProgress = func(sess generation.Session) { onProgress(key, sess) }
	}
	if wsOpts.Logger != nil {
		wsOpts.Logger = wsOpts.Logger.With("chat_id", key.ChatID, "user_id", key.UserID)
	}

	ws := NewWorkspace(wsOpts)
	if s.opts.OnNotify != nil {
		onNotify := s.opts.OnNotify
		ws.Notifications().SetOnEmit(func(channel string, n notify.Notification) {
			onNotify(key, channel, n)
		})
	}
	s.workspaces[key] = ws
	return ws
}

func (s *Store) Lookup(key Key) (*Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[key]
	return ws, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workspaces)
}

// Prune drops workspaces idle for longer than maxIdle whose orchestrator is
// not running. It returns how many were removed.
func (s *Store) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, ws := range s.workspaces {
		if ws.Orchestrator().State() == generation.StateRunning {
			continue
		}
		if ws.LastActivity().Before(cutoff) {
			delete(s.workspaces, key)
			removed++
		}
	}
	return removed
}

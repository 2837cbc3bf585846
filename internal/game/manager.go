package game

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// PlayerRef identifies the player a session is opened for.
type PlayerRef struct {
	ID       int
	Nickname string
	Score    int
}

type managedSession struct {
	session *Session
	cancel  context.CancelFunc
}

// Manager keeps the live sessions of this instance, at most one per player.
type Manager struct {
	board *Board
	cfg   SessionConfig
	sink  EventSink
	store SessionStore
	rng   func() RandomSource

	ctx      context.Context
	mu       sync.RWMutex
	sessions map[string]*managedSession
	byPlayer map[int]string
}

// NewManager creates a manager whose sessions live until ctx is cancelled
// or they are closed. sink and store may be nil.
func NewManager(ctx context.Context, board *Board, cfg SessionConfig, sink EventSink, store SessionStore) *Manager {
	return &Manager{
		board:    board,
		cfg:      cfg,
		sink:     sink,
		store:    store,
		rng:      DefaultRNG,
		ctx:      ctx,
		sessions: make(map[string]*managedSession),
		byPlayer: make(map[int]string),
	}
}

// Config returns the session economy settings.
func (m *Manager) Config() SessionConfig {
	return m.cfg
}

// Board returns the board sessions are played on.
func (m *Manager) Board() *Board {
	return m.board
}

// Open returns the player's live session, creating one if needed.
func (m *Manager) Open(p PlayerRef) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byPlayer[p.ID]; ok && p.ID != 0 {
		if ms, ok := m.sessions[id]; ok {
			return ms.session, false
		}
	}

	id := uuid.NewString()
	s := NewSession(id, p.ID, p.Nickname, p.Score, m.board, m.cfg, m.rng(), m.sink, m.store)
	ctx, cancel := context.WithCancel(m.ctx)
	m.sessions[id] = &managedSession{session: s, cancel: cancel}
	if p.ID != 0 {
		m.byPlayer[p.ID] = id
	}
	go s.Run(ctx)

	zap.S().Infof("[SESSION] opened %s for player %d (%s) score=%d", id, p.ID, p.Nickname, p.Score)
	return s, true
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ms.session, nil
}

// ForPlayer returns the player's live session.
func (m *Manager) ForPlayer(playerID int) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPlayer[playerID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	ms, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ms.session, nil
}

// Close stops a session and forgets it. status is logged for the audit trail.
func (m *Manager) Close(id string, status SessionStatus) error {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		if m.byPlayer[ms.session.PlayerID] == id {
			delete(m.byPlayer, ms.session.PlayerID)
		}
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	ms.cancel()
	<-ms.session.Done()
	if m.sink != nil {
		m.sink.Publish(id, Event{Type: EventState, SessionID: id, Data: map[string]any{"status": status}})
	}
	zap.S().Infof("[SESSION] closed %s (%s)", id, status)
	return nil
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.Close(id, StatusClosed)
	}
}

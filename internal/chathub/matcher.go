package chathub

import (
	"errors"
	"sync"
	"time"

	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/stats"
	"anonchat/backend/internal/storage"

	"github.com/google/uuid"
)

// ErrAlreadyQueued is returned when a session tries to enqueue twice.
var ErrAlreadyQueued = errors.New("session already in queue")

// ErrNotIdle is returned when a non-Idle session tries to enqueue.
var ErrNotIdle = errors.New("session is not idle")

// WaitingEntry is one queued session, FIFO by enqueue time.
type WaitingEntry struct {
	SessionID  string    `json:"sessionId"`
	Source     string    `json:"ip"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Matcher owns the FIFO queue of waiting sessions and the single matching
// operation. One mutex serializes every queue mutation and Match run.
type Matcher struct {
	mu    sync.Mutex
	queue []WaitingEntry

	reg      *Registry
	storage  storage.Storage
	counters *stats.Counters
}

// NewMatcher creates a matcher over the registry.
func NewMatcher(reg *Registry, s storage.Storage, counters *stats.Counters) *Matcher {
	return &Matcher{
		reg:      reg,
		storage:  s,
		counters: counters,
	}
}

// Enqueue adds an Idle session to the back of the queue and flips it to
// Waiting.
func (m *Matcher) Enqueue(sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.queue {
		if entry.SessionID == sess.ID {
			return ErrAlreadyQueued
		}
	}
	if !m.reg.SetWaiting(sess.ID) {
		return ErrNotIdle
	}
	m.queue = append(m.queue, WaitingEntry{
		SessionID:  sess.ID,
		Source:     sess.Source,
		EnqueuedAt: time.Now(),
	})
	logger.Log.Infof("Session %s joined the queue (%d waiting)", sess.ID, len(m.queue))
	return nil
}

// Remove drops a session's waiting entry, if present.
func (m *Matcher) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, entry := range m.queue {
		if entry.SessionID == sessionID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// Match pairs waiting sessions in strict FIFO order. Entries whose session
// is no longer Waiting are discarded; the surviving entry of a broken pair
// goes back to the front so enqueue order is preserved.
func (m *Matcher) Match() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.queue) >= 2 {
		a, b := m.queue[0], m.queue[1]
		m.queue = m.queue[2:]

		roomID := uuid.New().String()
		room, totalRooms, aOK, bOK := m.reg.Pair(a.SessionID, b.SessionID, roomID)
		if !aOK || !bOK {
			// Push the survivor back to the front; the dead entry is gone.
			if bOK {
				m.queue = append([]WaitingEntry{b}, m.queue...)
			} else if aOK {
				m.queue = append([]WaitingEntry{a}, m.queue...)
			}
			continue
		}

		if err := m.storage.SaveChatSession(&models.ChatSession{
			RoomID:     room.ID,
			Session1ID: room.SessionA,
			Session2ID: room.SessionB,
			IP1:        room.SourceA,
			IP2:        room.SourceB,
			StartedAt:  room.StartedAt.Unix(),
			IsActive:   1,
		}); err != nil {
			logger.Log.Warnf("Failed to persist chat session %s: %v", room.ID, err)
		}
		m.counters.RoomOpened(room.SourceA, room.SourceB, totalRooms)

		logger.Log.Infof("Matched %s and %s in room %s", a.SessionID, b.SessionID, room.ID)
	}
}

// Len returns the current queue length.
func (m *Matcher) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Snapshot returns the queue in enqueue order.
func (m *Matcher) Snapshot() []WaitingEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WaitingEntry, len(m.queue))
	copy(out, m.queue)
	return out
}

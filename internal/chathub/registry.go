package chathub

import (
	"context"
	"sort"
	"sync"
	"time"

	"anonchat/backend/internal/config"
	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"

	"github.com/google/uuid"
)

// QueueRemover is the slice of the matcher the registry needs during
// unregistration: pulling a closing session's waiting entry.
type QueueRemover interface {
	Remove(sessionID string)
}

// Registry is the authoritative in-memory map of live sessions and rooms.
// It exclusively owns session mutable fields outside of the owning router
// task; critical sections never perform I/O.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]*Room

	storage storage.Storage
	queue   QueueRemover
}

// NewRegistry creates an empty registry.
func NewRegistry(s storage.Storage) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]*Room),
		storage:  s,
	}
}

// SetQueue wires the matcher in after construction (the matcher also needs
// the registry, so one side is attached late).
func (r *Registry) SetQueue(q QueueRemover) {
	r.queue = q
}

// Register allocates a session for an admitted connection.
func (r *Registry) Register(source string, c Client) *Session {
	sess := &Session{
		ID:        uuid.New().String(),
		Source:    source,
		CreatedAt: time.Now(),
		state:     StateIdle,
		client:    c,
	}

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	logger.Log.Infof("Session %s registered for %s", sess.ID, source)
	return sess
}

// Unregister tears a session down: severs the partner link first, removes
// the waiting entry if any, and deletes the session. Idempotent.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}

	var partnerID string
	var endedRoom *Room
	wasWaiting := sess.state == StateWaiting

	if sess.state == StatePaired {
		partnerID = sess.partnerID
		if room, ok := r.rooms[sess.roomID]; ok {
			roomCopy := *room
			endedRoom = &roomCopy
			delete(r.rooms, room.ID)
		}
		if partner, ok := r.sessions[partnerID]; ok {
			partner.partnerID = ""
			partner.roomID = ""
			partner.state = StateIdle
		}
	}

	sess.partnerID = ""
	sess.roomID = ""
	sess.state = StateClosed
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if partnerID != "" {
		r.Send(partnerID, models.EvPartnerDisconnected, struct{}{})
	}
	if wasWaiting && r.queue != nil {
		r.queue.Remove(sessionID)
	}
	if endedRoom != nil {
		if err := r.storage.CloseChatSession(endedRoom.ID, time.Now().Unix(), endedRoom.MessageCount); err != nil {
			logger.Log.Warnf("Failed to close chat session %s: %v", endedRoom.ID, err)
		}
	}
	logger.Log.Infof("Session %s unregistered", sessionID)
}

// Send enqueues one frame to a session's outbound queue. Frames to unknown
// or closed sessions are dropped silently. A full queue marks the session
// unhealthy: its channel is closed and the session disconnected.
func (r *Registry) Send(sessionID, event string, data interface{}) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	var client Client
	if ok && sess.state != StateClosed {
		client = sess.client
	}
	r.mu.RUnlock()

	if client == nil {
		return
	}
	if !client.Enqueue(models.OutFrame{Type: event, Data: data}) {
		logger.Log.Warnf("Outbound queue overflow for session %s, disconnecting", sessionID)
		go func() {
			client.Close()
			r.Unregister(sessionID)
		}()
	}
}

// StateOf returns a session's current state.
func (r *Registry) StateOf(sessionID string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return StateClosed, false
	}
	return sess.state, true
}

// PairInfo returns the partner and room of a paired session.
func (r *Registry) PairInfo(sessionID string) (partnerID, roomID string, paired bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sessionID]
	if !ok || sess.state != StatePaired {
		return "", "", false
	}
	return sess.partnerID, sess.roomID, true
}

// SetWaiting moves an Idle session to Waiting. Returns false otherwise.
func (r *Registry) SetWaiting(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	if !ok || sess.state != StateIdle {
		return false
	}
	sess.state = StateWaiting
	return true
}

// SetIdle moves a Waiting session back to Idle. Returns false otherwise.
func (r *Registry) SetIdle(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	if !ok || sess.state != StateWaiting {
		return false
	}
	sess.state = StateIdle
	return true
}

// Pair links two Waiting sessions into a room under one critical section:
// both flip to Paired, cross-link, the room is recorded and partner_found
// is enqueued to both before the lock is released, so neither side can
// observe a chat message ahead of partner_found. aOK/bOK report which side,
// if any, was no longer waiting.
func (r *Registry) Pair(aID, bID, roomID string) (room Room, totalRooms int, aOK, bOK bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, okA := r.sessions[aID]
	b, okB := r.sessions[bID]
	aOK = okA && a.state == StateWaiting
	bOK = okB && b.state == StateWaiting
	if !aOK || !bOK || aID == bID {
		return Room{}, len(r.rooms), aOK, bOK
	}

	now := time.Now()
	newRoom := &Room{
		ID:           roomID,
		SessionA:     aID,
		SessionB:     bID,
		SourceA:      a.Source,
		SourceB:      b.Source,
		StartedAt:    now,
		LastActivity: now,
	}
	r.rooms[roomID] = newRoom

	a.state = StatePaired
	a.partnerID = bID
	a.roomID = roomID
	b.state = StatePaired
	b.partnerID = aID
	b.roomID = roomID

	found := models.OutFrame{Type: models.EvPartnerFound, Data: models.PartnerFoundPayload{RoomID: roomID}}
	a.client.Enqueue(found)
	b.client.Enqueue(found)

	return *newRoom, len(r.rooms), true, true
}

// EndPairing severs a pairing: both sessions return to Idle and the room is
// removed. Returns the partner to notify and a copy of the room.
func (r *Registry) EndPairing(sessionID string) (partnerID string, room Room, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, found := r.sessions[sessionID]
	if !found || sess.state != StatePaired {
		return "", Room{}, false
	}

	partnerID = sess.partnerID
	if stored, exists := r.rooms[sess.roomID]; exists {
		room = *stored
		delete(r.rooms, stored.ID)
	}
	if partner, exists := r.sessions[partnerID]; exists {
		partner.partnerID = ""
		partner.roomID = ""
		partner.state = StateIdle
	}
	sess.partnerID = ""
	sess.roomID = ""
	sess.state = StateIdle
	return partnerID, room, true
}

// BumpRoom increments a room's message counter and refreshes its activity
// timestamp. Returns the new count.
func (r *Registry) BumpRoom(roomID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return 0, false
	}
	room.MessageCount++
	room.LastActivity = time.Now()
	return room.MessageCount, true
}

// RoomCount returns the number of active rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SnapshotSessions returns a read-only view of live sessions.
func (r *Registry) SnapshotSessions() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, sess := range r.sessions {
		infos = append(infos, SessionInfo{
			ID:        sess.ID,
			Source:    sess.Source,
			State:     sess.state.String(),
			PartnerID: sess.partnerID,
			RoomID:    sess.roomID,
			CreatedAt: sess.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos
}

// SnapshotRooms returns active rooms sorted by start time, newest first.
func (r *Registry) SnapshotRooms() []Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, *room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].StartedAt.After(rooms[j].StartedAt) })
	return rooms
}

// SweepIdle disconnects both ends of rooms idle past the timeout.
func (r *Registry) SweepIdle(timeout time.Duration) {
	cutoff := time.Now().Add(-timeout)

	r.mu.RLock()
	var stale []string
	for _, room := range r.rooms {
		if room.LastActivity.Before(cutoff) {
			stale = append(stale, room.SessionA, room.SessionB)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		r.mu.RLock()
		sess, ok := r.sessions[id]
		var client Client
		if ok {
			client = sess.client
		}
		r.mu.RUnlock()
		if !ok {
			continue
		}
		logger.Log.Infof("Closing idle session %s", id)
		client.Close()
		r.Unregister(id)
	}
}

// RunSweeper closes idle paired sessions until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(config.IdleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepIdle(config.IdleTimeout)
		}
	}
}

package chathub

import "time"

// State of a connected session.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StatePaired
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StatePaired:
		return "paired"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is one end of a live connection. ID and Source are immutable;
// partnerID, roomID and state are guarded by the registry mutex.
type Session struct {
	ID        string
	Source    string
	CreatedAt time.Time

	partnerID string
	roomID    string
	state     State
	client    Client
}

// Room is the pairing of two sessions. Guarded by the registry mutex.
type Room struct {
	ID           string    `json:"roomId"`
	SessionA     string    `json:"session1Id"`
	SessionB     string    `json:"session2Id"`
	SourceA      string    `json:"ip1"`
	SourceB      string    `json:"ip2"`
	StartedAt    time.Time `json:"startedAt"`
	MessageCount int       `json:"messageCount"`
	LastActivity time.Time `json:"lastActivity"`
}

// SessionInfo is a read-only snapshot row for the admin surface.
type SessionInfo struct {
	ID        string    `json:"sessionId"`
	Source    string    `json:"ip"`
	State     string    `json:"state"`
	PartnerID string    `json:"partnerId,omitempty"`
	RoomID    string    `json:"roomId,omitempty"`
	CreatedAt time.Time `json:"connectedAt"`
}

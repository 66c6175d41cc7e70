package chathub

import (
	"sync"
	"time"

	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"
)

// Polling bounds for assertions on async paths.
const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// StubStorage records the writes the realtime plane performs. Methods not
// overridden fall through to the embedded nil interface and panic, which
// flags an unexpected repository call in a test.
type StubStorage struct {
	storage.Storage

	mu            sync.Mutex
	SavedSessions []models.ChatSession
	ClosedRooms   []string
	LoggedRows    []models.ChatMessageLog
	RateRows      []models.RateLimit
	HourlyRows    []models.HourlyStat
	DailyRows     []models.DailyStat
	UniqueAdds    []string

	LogErr error
}

func (s *StubStorage) SaveChatSession(session *models.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SavedSessions = append(s.SavedSessions, *session)
	return nil
}

func (s *StubStorage) CloseChatSession(roomID string, endedAt int64, messageCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ClosedRooms = append(s.ClosedRooms, roomID)
	return nil
}

func (s *StubStorage) LogMessage(msg *models.ChatMessageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LogErr != nil {
		return s.LogErr
	}
	s.LoggedRows = append(s.LoggedRows, *msg)
	return nil
}

func (s *StubStorage) TouchRateLimit(ip, action string, count int, windowStart int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RateRows = append(s.RateRows, models.RateLimit{IP: ip, Action: action, Count: count, WindowStart: windowStart})
	return nil
}

func (s *StubStorage) AddUniqueSource(day, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UniqueAdds = append(s.UniqueAdds, ip)
	return nil
}

func (s *StubStorage) SaveHourlyStats(stat *models.HourlyStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HourlyRows = append(s.HourlyRows, *stat)
	return nil
}

func (s *StubStorage) SaveDailyStats(stat *models.DailyStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DailyRows = append(s.DailyRows, *stat)
	return nil
}

func (s *StubStorage) Logged() []models.ChatMessageLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessageLog, len(s.LoggedRows))
	copy(out, s.LoggedRows)
	return out
}

// StubClient is a Client double that records every enqueued frame.
type StubClient struct {
	mu     sync.Mutex
	Frames []models.OutFrame
	Closed bool
	Full   bool // when set, Enqueue reports overflow
}

func (c *StubClient) Enqueue(frame models.OutFrame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Full {
		return false
	}
	c.Frames = append(c.Frames, frame)
	return true
}

func (c *StubClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
}

// IsClosed reports whether Close was called.
func (c *StubClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Closed
}

// FrameTypes returns the order of enqueued frame types.
func (c *StubClient) FrameTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.Frames))
	for i, f := range c.Frames {
		types[i] = f.Type
	}
	return types
}

// LastFrame returns the most recent frame, if any.
func (c *StubClient) LastFrame() (models.OutFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Frames) == 0 {
		return models.OutFrame{}, false
	}
	return c.Frames[len(c.Frames)-1], true
}

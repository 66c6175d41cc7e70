// Package stats keeps the live operational counters: messages today, peak
// concurrent rooms and today's unique source addresses. The day boundary is
// checked on every mutation; the hourly flush persists per-hour deltas.
package stats

import (
	"context"
	"sync"
	"time"

	"anonchat/backend/internal/config"
	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"
)

const dayLayout = "2006-01-02"

// Counters is safe for concurrent use.
type Counters struct {
	mu            sync.Mutex
	storage       storage.Storage
	day           string
	messagesToday int
	peakRooms     int
	uniqueSources map[string]struct{}
	flushedCount  int // messagesToday already captured by an hourly flush

	now func() time.Time
}

// New starts the counters at the current day.
func New(s storage.Storage) *Counters {
	c := &Counters{
		storage:       s,
		uniqueSources: make(map[string]struct{}),
		now:           time.Now,
	}
	c.day = c.now().Format(dayLayout)
	return c
}

// MessageSent bumps today's message counter.
func (c *Counters) MessageSent() {
	c.mu.Lock()
	c.rolloverLocked()
	c.messagesToday++
	c.mu.Unlock()
}

// RoomOpened records a new pairing: updates the concurrent-room peak and
// today's unique sources. Repository errors are logged and swallowed.
func (c *Counters) RoomOpened(sourceA, sourceB string, activeRooms int) {
	c.mu.Lock()
	c.rolloverLocked()
	if activeRooms > c.peakRooms {
		c.peakRooms = activeRooms
	}
	c.uniqueSources[sourceA] = struct{}{}
	c.uniqueSources[sourceB] = struct{}{}
	day := c.day
	c.mu.Unlock()

	for _, source := range []string{sourceA, sourceB} {
		if err := c.storage.AddUniqueSource(day, source); err != nil {
			logger.Log.Warnf("Failed to record unique source %s: %v", source, err)
		}
	}
}

// MessagesToday returns today's message count.
func (c *Counters) MessagesToday() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return c.messagesToday
}

// Snapshot returns (messagesToday, peakRooms, uniqueSourcesToday).
func (c *Counters) Snapshot() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return c.messagesToday, c.peakRooms, len(c.uniqueSources)
}

// FlushHourly persists the messages seen since the previous flush.
func (c *Counters) FlushHourly() {
	c.mu.Lock()
	c.rolloverLocked()
	delta := c.messagesToday - c.flushedCount
	c.flushedCount = c.messagesToday
	now := c.now()
	day := c.day
	c.mu.Unlock()

	if delta == 0 {
		return
	}
	stat := &models.HourlyStat{Date: day, Hour: now.Hour(), MessageCount: delta}
	if err := c.storage.SaveHourlyStats(stat); err != nil {
		logger.Log.Warnf("Failed to save hourly stats: %v", err)
	}
}

// rolloverLocked persists yesterday's snapshot and resets the counters when
// the local day changed. Caller holds c.mu.
func (c *Counters) rolloverLocked() {
	today := c.now().Format(dayLayout)
	if today == c.day {
		return
	}

	uniques := len(c.uniqueSources)
	// The Redis set survives restarts within the day; prefer it when it
	// saw more than this process did.
	if persisted, err := c.storage.CountUniqueSources(c.day); err == nil && int(persisted) > uniques {
		uniques = int(persisted)
	}

	snapshot := &models.DailyStat{
		Date:         c.day,
		MessageCount: c.messagesToday,
		UniqueIPs:    uniques,
		PeakRooms:    c.peakRooms,
	}
	if err := c.storage.SaveDailyStats(snapshot); err != nil {
		logger.Log.Errorf("Failed to persist daily stats for %s: %v", c.day, err)
	}

	c.day = today
	c.messagesToday = 0
	c.peakRooms = 0
	c.flushedCount = 0
	c.uniqueSources = make(map[string]struct{})
}

// Run flushes hourly stats until ctx is cancelled.
func (c *Counters) Run(ctx context.Context) {
	ticker := time.NewTicker(config.HourlyFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.FlushHourly()
		}
	}
}

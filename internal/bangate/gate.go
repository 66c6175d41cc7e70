// Package bangate answers "is this source banned" in front of every
// admission, with a short-TTL cache over the repository so a hot admission
// path does not hammer the database.
package bangate

import (
	"context"
	"sync"
	"time"

	"anonchat/backend/internal/config"
	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/storage"
)

type cacheEntry struct {
	banned  bool
	checked time.Time
}

// Gate caches ban lookups per source address.
type Gate struct {
	mu      sync.Mutex
	storage storage.Storage
	ttl     time.Duration
	entries map[string]cacheEntry

	now func() time.Time
}

// New creates a gate with the configured TTL.
func New(s storage.Storage) *Gate {
	return &Gate{
		storage: s,
		ttl:     config.BanCacheTTL,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// IsBanned returns the cached verdict when fresh, otherwise consults the
// repository. A repository error is returned to the caller so admission can
// fail closed.
func (g *Gate) IsBanned(source string) (bool, error) {
	g.mu.Lock()
	entry, ok := g.entries[source]
	if ok && g.now().Sub(entry.checked) < g.ttl {
		g.mu.Unlock()
		return entry.banned, nil
	}
	g.mu.Unlock()

	banned, err := g.storage.IsBanned(source)
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	g.entries[source] = cacheEntry{banned: banned, checked: g.now()}
	g.mu.Unlock()
	return banned, nil
}

// Invalidate drops the cached verdict for one source.
func (g *Gate) Invalidate(source string) {
	g.mu.Lock()
	delete(g.entries, source)
	g.mu.Unlock()
}

// InvalidateAll drops every cached verdict.
func (g *Gate) InvalidateAll() {
	g.mu.Lock()
	g.entries = make(map[string]cacheEntry)
	g.mu.Unlock()
}

// Watch consumes ban-update notifications (from the storage pub/sub
// channel) and invalidates the affected entries until ctx is cancelled.
func (g *Gate) Watch(ctx context.Context, updates <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case source, ok := <-updates:
			if !ok {
				return
			}
			logger.Log.Infof("Ban update for %s, invalidating cache", source)
			g.Invalidate(source)
		}
	}
}

package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/relaymind/relaymind/pkg/embedding"
	"github.com/relaymind/relaymind/pkg/wire"
)

// Mode selects how the cache resolves a fingerprint into a potential hit.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeSimple   Mode = "simple"
	ModeSemantic Mode = "semantic"
)

// Status is what pkg/observability attaches to the log's cache_status field.
type Status string

const (
	StatusHit  Status = "HIT"
	StatusMiss Status = "MISS"
	StatusNA   Status = "N/A"
)

// Entry is one cached response, keyed by exact fingerprint and, in semantic
// mode, also indexed by embedding.
type Entry struct {
	Fingerprint string
	Response    *wire.Response
	Chunks      []*wire.Chunk
	Embedding   []float32
	CreatedAt   time.Time
	ExpiresAt   time.Time
	AccessCount int
}

func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Config controls one Cache instance's behavior.
type Config struct {
	Mode               Mode
	TTL                time.Duration
	MaxEntries         int
	SemanticThreshold  float64 // cosine similarity at/above which a semantic bucket collapses
}

// Cache implements the fingerprint + optional semantic-bucket response
// cache with single-flight coalescing of concurrent identical requests.
// TTL expiry and the background cleanup goroutine follow the same shape as
// the teacher's sticky routing cache; the group added on top coalesces
// concurrent misses instead of just tracking LRU/TTL state.
type Cache struct {
	cfg Config

	mu      sync.RWMutex
	entries map[string]*Entry

	group singleflight.Group

	stopCh chan struct{}
}

// New returns a ready Cache. If cfg.Mode is ModeDisabled, Lookup always
// returns no entry with StatusNA and Put is a no-op, but the struct remains
// safe to call.
func New(cfg Config) *Cache {
	if cfg.SemanticThreshold == 0 {
		cfg.SemanticThreshold = 0.95
	}
	c := &Cache{
		cfg:     cfg,
		entries: make(map[string]*Entry),
		stopCh:  make(chan struct{}),
	}
	if cfg.Mode != ModeDisabled && cfg.TTL > 0 {
		go c.cleanupExpired()
	}
	return c
}

// Lookup resolves a fingerprint (and, in semantic mode, an embedding) to a
// cached entry. forceRefresh bypasses the lookup (but Put after the leader
// computes still writes the entry).
func (c *Cache) Lookup(fingerprint string, vector []float32, forceRefresh bool) (*Entry, Status) {
	if c.cfg.Mode == ModeDisabled {
		return nil, StatusNA
	}
	if forceRefresh {
		return nil, StatusMiss
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, ok := c.entries[fingerprint]; ok && !entry.expired(time.Now()) {
		return entry, StatusHit
	}

	if c.cfg.Mode == ModeSemantic && vector != nil {
		if entry := c.semanticMatch(vector); entry != nil {
			return entry, StatusHit
		}
	}

	return nil, StatusMiss
}

func (c *Cache) semanticMatch(vector []float32) *Entry {
	now := time.Now()
	var best *Entry
	var bestScore float64
	for _, entry := range c.entries {
		if entry.expired(now) || entry.Embedding == nil {
			continue
		}
		score, err := embedding.CosineSimilarity(vector, entry.Embedding)
		if err != nil {
			continue
		}
		if score >= c.cfg.SemanticThreshold && score > bestScore {
			best, bestScore = entry, score
		}
	}
	return best
}

// Put writes a completed response into the cache under its fingerprint.
func (c *Cache) Put(fingerprint string, vector []float32, resp *wire.Response) {
	if c.cfg.Mode == ModeDisabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(fingerprint, vector, resp, nil)
}

// PutStream writes a streaming response's accumulated chunks into the
// cache, enabling synthetic-chunk replay on a subsequent HIT.
func (c *Cache) PutStream(fingerprint string, vector []float32, resp *wire.Response, chunks []*wire.Chunk) {
	if c.cfg.Mode == ModeDisabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(fingerprint, vector, resp, chunks)
}

func (c *Cache) insertLocked(fingerprint string, vector []float32, resp *wire.Response, chunks []*wire.Chunk) {
	if c.cfg.MaxEntries > 0 && len(c.entries) >= c.cfg.MaxEntries {
		if _, exists := c.entries[fingerprint]; !exists {
			c.evictOldestLocked()
		}
	}

	now := time.Now()
	var expiresAt time.Time
	if c.cfg.TTL > 0 {
		expiresAt = now.Add(c.cfg.TTL)
	}

	c.entries[fingerprint] = &Entry{
		Fingerprint: fingerprint,
		Response:    resp,
		Chunks:      chunks,
		Embedding:   vector,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
		AccessCount: 1,
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.CreatedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Coalesce runs fn under single-flight keyed by fingerprint: concurrent
// callers with the same fingerprint block on one in-flight computation, and
// the leader's result (or error) is shared to every waiter. If the leader's
// call fails with a context cancellation or deadline error, each waiter whose
// own ctx is still live calls in again, so one of them is promoted to leader
// and runs its own fn while the rest wait on it.
func (c *Cache) Coalesce(ctx context.Context, fingerprint string, fn func() (*wire.Response, error)) (*wire.Response, error, bool) {
	for {
		led := false
		v, err, shared := c.group.Do(fingerprint, func() (interface{}, error) {
			led = true
			return fn()
		})
		if err != nil {
			if !led && ctx.Err() == nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				continue
			}
			return nil, err, shared
		}
		return v.(*wire.Response), nil, shared
	}
}

func (c *Cache) cleanupExpired() {
	ticker := time.NewTicker(c.cfg.TTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for k, e := range c.entries {
				if e.expired(now) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// Close stops the background cleanup goroutine.
func (c *Cache) Close() {
	close(c.stopCh)
}

// Size reports the current entry count, used by diagnostics.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

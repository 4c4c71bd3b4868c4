package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	c "github.com/d0ngw/timeline-counter/common"
)

const memoryShardCount = 32

type memoryEntry struct {
	value    int64
	version  Version
	expireAt time.Time
}

func (p *memoryEntry) expired(now time.Time) bool {
	return !p.expireAt.IsZero() && !now.Before(p.expireAt)
}

type memoryShard struct {
	sync.Mutex
	entries map[string]*memoryEntry
}

// MemoryCache is a process local CoordinationCache, it only coordinates the
// writers of one process
type MemoryCache struct {
	shards  []*memoryShard
	expire  time.Duration
	version int64
	now     func() time.Time
}

// NewMemoryCache creates the cache, expire 0 means entries never expire
func NewMemoryCache(expire time.Duration) *MemoryCache {
	shards := make([]*memoryShard, memoryShardCount)
	for i := range shards {
		shards[i] = &memoryShard{entries: map[string]*memoryEntry{}}
	}
	return &MemoryCache{shards: shards, expire: expire, now: time.Now}
}

func (p *MemoryCache) shard(key string) *memoryShard {
	return p.shards[c.Fnv32Hashcode(key)%len(p.shards)]
}

func (p *MemoryCache) newEntry(value int64) *memoryEntry {
	e := &memoryEntry{value: value, version: Version(atomic.AddInt64(&p.version, 1))}
	if p.expire > 0 {
		e.expireAt = p.now().Add(p.expire)
	}
	return e
}

// lookup returns the live entry of key, the shard lock must be held
func (p *MemoryCache) lookup(s *memoryShard, key string) *memoryEntry {
	e := s.entries[key]
	if e == nil {
		return nil
	}
	if e.expired(p.now()) {
		delete(s.entries, key)
		return nil
	}
	return e
}

// GetWithVersion implements CoordinationCache
func (p *MemoryCache) GetWithVersion(ctx context.Context, key string) (int64, Version, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, false, err
	}
	s := p.shard(key)
	s.Lock()
	defer s.Unlock()
	e := p.lookup(s, key)
	if e == nil {
		return 0, 0, false, nil
	}
	return e.value, e.version, true, nil
}

// SetIfAbsent implements CoordinationCache
func (p *MemoryCache) SetIfAbsent(ctx context.Context, key string, value int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := p.shard(key)
	s.Lock()
	defer s.Unlock()
	if p.lookup(s, key) != nil {
		return false, nil
	}
	s.entries[key] = p.newEntry(value)
	return true, nil
}

// CompareAndSwap implements CoordinationCache
func (p *MemoryCache) CompareAndSwap(ctx context.Context, key string, version Version, value int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := p.shard(key)
	s.Lock()
	defer s.Unlock()
	e := p.lookup(s, key)
	if e == nil || e.version != version {
		return false, nil
	}
	s.entries[key] = p.newEntry(value)
	return true, nil
}

// Delete implements CoordinationCache
func (p *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := p.shard(key)
	s.Lock()
	delete(s.entries, key)
	s.Unlock()
	return nil
}

// Len returns the count of live entries
func (p *MemoryCache) Len() int {
	now := p.now()
	n := 0
	for _, s := range p.shards {
		s.Lock()
		for _, e := range s.entries {
			if !e.expired(now) {
				n++
			}
		}
		s.Unlock()
	}
	return n
}

package counter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/d0ngw/timeline-counter/cache"
	"github.com/d0ngw/timeline-counter/fields"
	"github.com/d0ngw/timeline-counter/item"
	"github.com/stretchr/testify/require"
)

// hookCache wraps a CoordinationCache, counts the calls and lets a test
// change the answers
type hookCache struct {
	cache.CoordinationCache
	mu    sync.Mutex
	calls map[string]int

	beforeGet func(n int)
	cas       func(n int) (swapped, override bool, err error)
}

func newHookCache(cc cache.CoordinationCache) *hookCache {
	return &hookCache{CoordinationCache: cc, calls: map[string]int{}}
}

func (p *hookCache) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[name]++
	return p.calls[name]
}

func (p *hookCache) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *hookCache) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, v := range p.calls {
		n += v
	}
	return n
}

func (p *hookCache) GetWithVersion(ctx context.Context, key string) (int64, cache.Version, bool, error) {
	n := p.count("get")
	if p.beforeGet != nil {
		p.beforeGet(n)
	}
	return p.CoordinationCache.GetWithVersion(ctx, key)
}

func (p *hookCache) SetIfAbsent(ctx context.Context, key string, value int64) (bool, error) {
	p.count("set")
	return p.CoordinationCache.SetIfAbsent(ctx, key, value)
}

func (p *hookCache) CompareAndSwap(ctx context.Context, key string, version cache.Version, value int64) (bool, error) {
	n := p.count("cas")
	if p.cas != nil {
		if swapped, override, err := p.cas(n); override {
			return swapped, err
		}
	}
	return p.CoordinationCache.CompareAndSwap(ctx, key, version, value)
}

func (p *hookCache) Delete(ctx context.Context, key string) error {
	p.count("delete")
	return p.CoordinationCache.Delete(ctx, key)
}

// hookStore wraps an item.Store the same way
type hookStore struct {
	item.Store
	mu    sync.Mutex
	calls map[string]int

	get    func(n int) error
	update func(n int) error
}

func newHookStore(s item.Store) *hookStore {
	return &hookStore{Store: s, calls: map[string]int{}}
}

func (p *hookStore) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[name]++
	return p.calls[name]
}

func (p *hookStore) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *hookStore) Get(ctx context.Context, id string) (*item.Item, error) {
	n := p.count("get")
	if p.get != nil {
		if err := p.get(n); err != nil {
			return nil, err
		}
	}
	return p.Store.Get(ctx, id)
}

func (p *hookStore) Update(ctx context.Context, id string, it *item.Item) error {
	n := p.count("update")
	if p.update != nil {
		if err := p.update(n); err != nil {
			return err
		}
	}
	return p.Store.Update(ctx, id, it)
}

var fastRetry = &RetryConfig{MaxAttempts: 1000, Timeout: 10000, BackoffInitial: 1, BackoffMax: 2, PersistAttempts: 3}

type fixture struct {
	mem   *cache.MemoryCache
	cache *hookCache
	items *item.MemoryStore
	store *hookStore
	co    *Coordinator
}

func newFixture(t *testing.T, conf *RetryConfig, opts ...Option) *fixture {
	f := &fixture{mem: cache.NewMemoryCache(0), items: item.NewMemoryStore()}
	f.cache = newHookCache(f.mem)
	f.store = newHookStore(f.items)
	cp := *conf
	co, err := NewCoordinator(f.cache, f.store, &cp, opts...)
	require.Nil(t, err)
	f.co = co
	return f
}

// insert stores an item with the raw payload
func (p *fixture) insert(t *testing.T, id, payload string) {
	_, err := p.items.Insert(context.Background(), &item.Item{ID: id, SourceItemID: payload})
	require.Nil(t, err)
}

func (p *fixture) cached(t *testing.T, id string) (int64, bool) {
	v, _, ok, err := p.mem.GetWithVersion(context.Background(), id)
	require.Nil(t, err)
	return v, ok
}

func (p *fixture) stored(t *testing.T, id string) (int64, *item.Item) {
	it, err := p.items.Get(context.Background(), id)
	require.Nil(t, err)
	num, _, err := fields.ItemNum(it)
	require.Nil(t, err)
	return num, it
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

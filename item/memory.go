package item

import (
	"context"
	"fmt"
	"sync"

	c "github.com/d0ngw/timeline-counter/common"
	"github.com/google/uuid"
)

// MemoryStore keeps items in a map. Values are copied on the way in and out.
// Versions are checked on Update only when CheckVersion is set.
type MemoryStore struct {
	CheckVersion bool

	mu    sync.RWMutex
	items map[string]*Item
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]*Item{}}
}

// Get implements Store.Get
func (p *MemoryStore) Get(ctx context.Context, id string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	it, ok := p.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, c.ErrNotFound)
	}
	return it.Clone(), nil
}

// Update implements Store.Update
func (p *MemoryStore) Update(ctx context.Context, id string, it *Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if it == nil {
		return fmt.Errorf("nil item for %s", id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, c.ErrNotFound)
	}
	if p.CheckVersion && cur.Version != it.Version {
		return fmt.Errorf("item %s version %d,stored %d: %w", id, it.Version, cur.Version, c.ErrConflict)
	}
	stored := it.Clone()
	stored.ID = id
	stored.Version = cur.Version + 1
	p.items[id] = stored
	return nil
}

// Insert implements Store.Insert
func (p *MemoryStore) Insert(ctx context.Context, it *Item) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("nil item")
	}
	stored := it.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Version = 1
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.items[stored.ID]; ok {
		return nil, fmt.Errorf("item %s already exists: %w", stored.ID, c.ErrConflict)
	}
	p.items[stored.ID] = stored
	return stored.Clone(), nil
}

// Delete implements Store.Delete
func (p *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, c.ErrNotFound)
	}
	delete(p.items, id)
	return nil
}

// Len returns the number of stored items
func (p *MemoryStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

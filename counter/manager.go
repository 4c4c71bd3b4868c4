package counter

import (
	"context"
	"fmt"

	c "github.com/d0ngw/timeline-counter/common"
	"github.com/d0ngw/timeline-counter/fields"
	"github.com/d0ngw/timeline-counter/item"
)

// Counter is the view of one counter item
type Counter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Num  int64  `json:"num"`
}

// DefaultIconURL is the icon of the counter menu items
var DefaultIconURL = ""

// menuNames display names of the custom menu items
var menuNames = map[Operation]string{
	OpIncrement: "Increment",
	OpDecrement: "Decrement",
	OpReset:     "Reset",
}

// NewCounterItem builds the item of a new counter, its custom menu items send
// the operation names back as notification payloads
func NewCounterItem(name string, num int64, r fields.Renderer) (*item.Item, error) {
	it := &item.Item{Notification: &item.Notification{Level: "DEFAULT"}}
	for _, op := range Operations {
		it.MenuItems = append(it.MenuItems, item.MenuItem{
			Action: "CUSTOM",
			ID:     string(op),
			Values: []item.MenuValue{{DisplayName: menuNames[op], IconURL: DefaultIconURL}},
		})
	}
	it.MenuItems = append(it.MenuItems,
		item.MenuItem{Action: "SHARE"},
		item.MenuItem{Action: "TOGGLE_PINNED"},
		item.MenuItem{Action: "DELETE"})
	if err := fields.SetMultiple(it, fields.FieldSet{fields.KeyName: name, fields.KeyNum: num}, r); err != nil {
		return nil, err
	}
	refreshText(it)
	return it, nil
}

// Manager creates, overwrites and deletes counters. Operations go through the Coordinator.
type Manager struct {
	store       item.Store
	coordinator *Coordinator
	renderer    fields.Renderer
}

// NewManager creates the manager, r may be nil
func NewManager(store item.Store, coordinator *Coordinator, r fields.Renderer) (*Manager, error) {
	if c.HasNil(store, coordinator) {
		return nil, fmt.Errorf("item store and coordinator must be set")
	}
	return &Manager{store: store, coordinator: coordinator, renderer: r}, nil
}

// Create inserts a new counter item
func (p *Manager) Create(ctx context.Context, name string, num int64) (*Counter, error) {
	it, err := NewCounterItem(name, num, p.renderer)
	if err != nil {
		return nil, err
	}
	stored, err := p.store.Insert(ctx, it)
	if err != nil {
		return nil, err
	}
	c.Infof("counter %s created,name:%s,num:%d", stored.ID, name, num)
	return &Counter{ID: stored.ID, Name: name, Num: num}, nil
}

// Update overwrites name and num of the counter. The cache entry is dropped
// after the write so the next operation starts from the stored value.
func (p *Manager) Update(ctx context.Context, id string, name string, num int64) (*Counter, error) {
	it, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	writeFields(it, fields.FieldSet{fields.KeyName: name, fields.KeyNum: num}, p.renderer)
	it.Notification = nil
	if err = p.store.Update(ctx, id, it); err != nil {
		return nil, err
	}
	if err = p.coordinator.Invalidate(ctx, id); err != nil {
		c.Errorf("invalidate counter %s fail,err:%v", id, err)
	}
	return &Counter{ID: id, Name: name, Num: num}, nil
}

// Apply applies the named operation through the coordinator
func (p *Manager) Apply(ctx context.Context, id string, opName string) (int64, error) {
	return p.coordinator.Apply(ctx, id, opName)
}

// Reset sets the counter to 0 through the coordinator
func (p *Manager) Reset(ctx context.Context, id string) (int64, error) {
	return p.coordinator.ApplyOperation(ctx, id, OpReset)
}

// Delete removes the counter item and its cache entry
func (p *Manager) Delete(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := p.coordinator.Invalidate(ctx, id); err != nil {
		c.Errorf("invalidate counter %s fail,err:%v", id, err)
	}
	return nil
}

// Get returns the counter, the value comes from the cache when present
func (p *Manager) Get(ctx context.Context, id string) (*Counter, error) {
	it, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fs, err := fields.FromItem(it)
	if err != nil {
		fs = fields.FieldSet{}
	}
	num, err := p.coordinator.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Counter{ID: id, Name: fields.Name(fs), Num: num}, nil
}

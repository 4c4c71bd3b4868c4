// Package item models timeline items and the durable stores that own them
package item

import (
	"context"
)

// Notification is the delivery hint attached to an item
type Notification struct {
	Level string `json:"level,omitempty" codec:"level,omitempty"`
}

// MenuValue is the display state of a menu item
type MenuValue struct {
	DisplayName string `json:"displayName,omitempty" codec:"displayName,omitempty"`
	IconURL     string `json:"iconUrl,omitempty" codec:"iconUrl,omitempty"`
}

// MenuItem is an action offered on the item card
type MenuItem struct {
	Action string      `json:"action" codec:"action"`
	ID     string      `json:"id,omitempty" codec:"id,omitempty"`
	Values []MenuValue `json:"values,omitempty" codec:"values,omitempty"`
}

// Item is a timeline item. SourceItemID carries the encoded custom fields,
// everything else is presentation metadata.
type Item struct {
	ID           string        `json:"id" codec:"id"`
	SourceItemID string        `json:"sourceItemId,omitempty" codec:"sourceItemId,omitempty"`
	Text         string        `json:"text,omitempty" codec:"text,omitempty"`
	HTML         string        `json:"html,omitempty" codec:"html,omitempty"`
	Notification *Notification `json:"notification,omitempty" codec:"notification,omitempty"`
	MenuItems    []MenuItem    `json:"menuItems,omitempty" codec:"menuItems,omitempty"`
	// Version is managed by the store, 0 for an item that was never stored
	Version int64 `json:"-" codec:"-"`
}

// Clone returns a deep copy of the item
func (p *Item) Clone() *Item {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Notification != nil {
		n := *p.Notification
		cp.Notification = &n
	}
	if p.MenuItems != nil {
		cp.MenuItems = make([]MenuItem, len(p.MenuItems))
		for i, m := range p.MenuItems {
			cp.MenuItems[i] = m
			if m.Values != nil {
				cp.MenuItems[i].Values = append([]MenuValue(nil), m.Values...)
			}
		}
	}
	return &cp
}

// Store is the durable item store. Implementations return errors wrapping
// common.ErrNotFound, common.ErrTransient or common.ErrConflict.
type Store interface {
	// Get returns a copy of the item
	Get(ctx context.Context, id string) (*Item, error)
	// Update replaces the stored item. A stale it.Version is rejected with
	// common.ErrConflict, the counter writes rely on it to keep the store from
	// moving backwards.
	Update(ctx context.Context, id string, it *Item) error
	// Insert stores a new item, assigning an id when it.ID is empty
	Insert(ctx context.Context, it *Item) (*Item, error)
	// Delete removes the item
	Delete(ctx context.Context, id string) error
}

// Package notify turns timeline notifications into counter operations
package notify

import (
	"context"
	"errors"
	"fmt"

	c "github.com/d0ngw/timeline-counter/common"
	"github.com/d0ngw/timeline-counter/counter"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// 通知中的常量
const (
	CollectionTimeline = "timeline"
	ActionCustom       = "CUSTOM"
)

// ErrInvalidNotification the body is not a notification
var ErrInvalidNotification = errors.New("invalid notification")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UserAction is one action the user took on the item
type UserAction struct {
	Type    string `json:"type"`
	Payload string `json:"payload,omitempty"`
}

// Notification is the callback body of a subscription
type Notification struct {
	Collection  string       `json:"collection"`
	ItemID      string       `json:"itemId"`
	Operation   string       `json:"operation,omitempty"`
	UserToken   string       `json:"userToken,omitempty"`
	VerifyToken string       `json:"verifyToken,omitempty"`
	UserActions []UserAction `json:"userActions,omitempty"`
}

// Event is the counter operation carried by a notification
type Event struct {
	ItemID    string
	Operation counter.Operation
}

// Decode parses a notification body
func Decode(body []byte) (*Notification, error) {
	n := &Notification{}
	if err := json.Unmarshal(body, n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	return n, nil
}

// Event returns the first actionable action of the notification: a CUSTOM
// action whose payload is an operation. A bare {itemId, operation} event is
// accepted too. skipped lists the actions that were not applied.
func (p *Notification) Event() (event *Event, skipped []UserAction) {
	if (p.Collection != "" && p.Collection != CollectionTimeline) || p.ItemID == "" {
		return nil, p.UserActions
	}
	if p.Operation != "" {
		if op, err := counter.ParseOperation(p.Operation); err == nil {
			return &Event{ItemID: p.ItemID, Operation: op}, p.UserActions
		}
		skipped = append(skipped, UserAction{Payload: p.Operation})
	}
	for i, action := range p.UserActions {
		if action.Type != ActionCustom {
			skipped = append(skipped, action)
			continue
		}
		op, err := counter.ParseOperation(action.Payload)
		if err != nil {
			skipped = append(skipped, action)
			continue
		}
		// 只处理第一个
		skipped = append(skipped, p.UserActions[i+1:]...)
		return &Event{ItemID: p.ItemID, Operation: op}, skipped
	}
	return nil, skipped
}

// Applier applies an operation to a counter
type Applier interface {
	ApplyOperation(ctx context.Context, itemID string, op counter.Operation) (int64, error)
}

// Dispatcher applies the event of the notifications it is handed
type Dispatcher struct {
	applier Applier
}

// NewDispatcher creates the dispatcher
func NewDispatcher(applier Applier) (*Dispatcher, error) {
	if c.HasNil(applier) {
		return nil, fmt.Errorf("applier must be set")
	}
	return &Dispatcher{applier: applier}, nil
}

// Result is the outcome of one handled notification
type Result struct {
	InvocationID string `json:"invocationId"`
	Handled      bool   `json:"handled"`
	ItemID       string `json:"itemId,omitempty"`
	Operation    string `json:"operation,omitempty"`
	Value        int64  `json:"value"`
}

// Handle applies the event of n. Handled is false when n carries no
// actionable action, which is not an error.
func (p *Dispatcher) Handle(ctx context.Context, n *Notification) (*Result, error) {
	result := &Result{InvocationID: uuid.NewString()}
	if n == nil {
		return result, fmt.Errorf("%w: nil", ErrInvalidNotification)
	}
	event, skipped := n.Event()
	for _, action := range skipped {
		c.Infof("[%s] don't know what to do with action %+v of item %s,collection:%s", result.InvocationID, action, n.ItemID, n.Collection)
	}
	if event == nil {
		return result, nil
	}
	result.Handled = true
	result.ItemID = event.ItemID
	result.Operation = event.Operation.String()
	value, err := p.applier.ApplyOperation(ctx, event.ItemID, event.Operation)
	result.Value = value
	if err != nil {
		c.Warnf("[%s] %s item %s fail,err:%v", result.InvocationID, event.Operation, event.ItemID, err)
		return result, err
	}
	c.Infof("[%s] %s item %s -> %d", result.InvocationID, event.Operation, event.ItemID, value)
	return result, nil
}

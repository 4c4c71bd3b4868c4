package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/d0ngw/timeline-counter/counter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordApplier struct {
	mu     sync.Mutex
	events []Event
	value  int64
	err    error
}

func (p *recordApplier) ApplyOperation(ctx context.Context, itemID string, op counter.Operation) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{ItemID: itemID, Operation: op})
	return p.value, p.err
}

func TestDecode(t *testing.T) {
	n, err := Decode([]byte(`{"collection":"timeline","itemId":"i1","userToken":"u1",
		"userActions":[{"type":"SHARE"},{"type":"CUSTOM","payload":"increment"}]}`))
	require.Nil(t, err)
	assert.Equal(t, "timeline", n.Collection)
	assert.Equal(t, "i1", n.ItemID)
	assert.Equal(t, "u1", n.UserToken)
	assert.Equal(t, []UserAction{{Type: "SHARE"}, {Type: ActionCustom, Payload: "increment"}}, n.UserActions)

	for _, bad := range []string{"", "{", "[]", `{"itemId":1}`} {
		_, err = Decode([]byte(bad))
		assert.True(t, errors.Is(err, ErrInvalidNotification), bad)
	}
}

func TestEvent(t *testing.T) {
	cases := []struct {
		n       Notification
		event   *Event
		skipped int
	}{
		{
			n: Notification{Collection: "timeline", ItemID: "i", UserActions: []UserAction{
				{Type: "SHARE"}, {Type: "CUSTOM", Payload: "double"}, {Type: "CUSTOM", Payload: "decrement"}, {Type: "CUSTOM", Payload: "reset"}}},
			event:   &Event{ItemID: "i", Operation: counter.OpDecrement},
			skipped: 3,
		},
		{
			n:       Notification{Collection: "locations", ItemID: "i", UserActions: []UserAction{{Type: "CUSTOM", Payload: "increment"}}},
			skipped: 1,
		},
		{
			n:       Notification{Collection: "timeline", UserActions: []UserAction{{Type: "CUSTOM", Payload: "increment"}}},
			skipped: 1,
		},
		{
			n:       Notification{Collection: "timeline", ItemID: "i", UserActions: []UserAction{{Type: "DELETE"}}},
			skipped: 1,
		},
		{
			n:     Notification{ItemID: "i", Operation: "reset"},
			event: &Event{ItemID: "i", Operation: counter.OpReset},
		},
		{
			n:       Notification{ItemID: "i", Operation: "double"},
			skipped: 1,
		},
	}
	for i, cs := range cases {
		event, skipped := cs.n.Event()
		assert.Equal(t, cs.event, event, "case %d", i)
		assert.Equal(t, cs.skipped, len(skipped), "case %d", i)
	}
}

func TestDispatcher(t *testing.T) {
	_, err := NewDispatcher(nil)
	assert.NotNil(t, err)

	applier := &recordApplier{value: 3}
	d, err := NewDispatcher(applier)
	require.Nil(t, err)

	result, err := d.Handle(context.Background(), &Notification{Collection: "timeline", ItemID: "i",
		UserActions: []UserAction{{Type: "CUSTOM", Payload: "increment"}, {Type: "CUSTOM", Payload: "reset"}}})
	require.Nil(t, err)
	assert.True(t, result.Handled)
	assert.NotEmpty(t, result.InvocationID)
	assert.EqualValues(t, 3, result.Value)
	assert.Equal(t, []Event{{ItemID: "i", Operation: counter.OpIncrement}}, applier.events)

	result, err = d.Handle(context.Background(), &Notification{Collection: "timeline", ItemID: "i"})
	require.Nil(t, err)
	assert.False(t, result.Handled)
	assert.Equal(t, 1, len(applier.events))

	_, err = d.Handle(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrInvalidNotification))

	applier.err = counter.ErrContention
	result, err = d.Handle(context.Background(), &Notification{ItemID: "i", Operation: "decrement"})
	assert.True(t, errors.Is(err, counter.ErrContention))
	assert.True(t, result.Handled)
	assert.Equal(t, "decrement", result.Operation)
}

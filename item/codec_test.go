package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncDec(t *testing.T) {
	it := &Item{
		ID:           "a",
		SourceItemID: `{"num":1}`,
		Notification: &Notification{Level: "DEFAULT"},
		MenuItems:    []MenuItem{{Action: "DELETE"}},
		Version:      7,
	}
	bytes, err := MsgPackEncodeBytes(it)
	assert.Nil(t, err)

	decoded := &Item{}
	err = MsgPackDecodeBytes(bytes, decoded)
	assert.Nil(t, err)
	assert.Equal(t, it.SourceItemID, decoded.SourceItemID)
	assert.Equal(t, it.MenuItems, decoded.MenuItems)
	assert.Equal(t, *it.Notification, *decoded.Notification)
	// the version lives in its own column
	assert.EqualValues(t, 0, decoded.Version)

	assert.NotNil(t, MsgPackDecodeBytes(nil, decoded))
}

package fields

import (
	"errors"
	"strings"
	"testing"

	"github.com/d0ngw/timeline-counter/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	sets := []FieldSet{
		{},
		{KeyName: "push ups", KeyNum: int64(7)},
		{KeyName: "", KeyNum: int64(-42), "color": "red"},
		{KeyNum: int64(9007199254740993)},
		{"html": "<b>&</b>"},
	}
	for _, fs := range sets {
		payload, err := Encode(fs)
		require.Nil(t, err)
		decoded, err := Decode(payload)
		require.Nil(t, err)
		assert.Equal(t, fs, decoded, payload)
	}
}

func TestDecode(t *testing.T) {
	fs, err := Decode("")
	assert.Nil(t, err)
	assert.Equal(t, FieldSet{}, fs)

	fs, err = Decode(`{"num":"7","name":"cups","ratio":1.5,"nested":{"a":1}}`)
	require.Nil(t, err)
	assert.Equal(t, "7", fs[KeyNum])
	assert.Equal(t, 1.5, fs["ratio"])
	assert.NotNil(t, fs["nested"])

	for _, bad := range []string{"{", "[1,2]", "3", `{"num":}`} {
		_, err = Decode(bad)
		assert.True(t, errors.Is(err, ErrMalformedPayload), bad)
	}
}

func TestUnknownKeysPreserved(t *testing.T) {
	it := &item.Item{SourceItemID: `{"name":"cups","num":1,"owner":"u1","nested":{"a":[1,2]}}`}
	require.Nil(t, Set(it, KeyNum, int64(2)))

	fs, err := FromItem(it)
	require.Nil(t, err)
	assert.Equal(t, int64(2), fs[KeyNum])
	assert.Equal(t, "u1", fs["owner"])
	assert.Contains(t, it.SourceItemID, `"nested":{"a":[1,2]}`)
}

func TestGetSet(t *testing.T) {
	it := &item.Item{}
	_, err := Get(it, KeyNum)
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	require.Nil(t, Set(it, KeyName, "cups"))
	v, err := Get(it, KeyName)
	require.Nil(t, err)
	assert.Equal(t, "cups", v)
	assert.Equal(t, "", it.HTML)

	bad := &item.Item{SourceItemID: "not json"}
	_, err = Get(bad, KeyNum)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
	assert.True(t, errors.Is(Set(bad, KeyNum, int64(1)), ErrMalformedPayload))
	assert.Equal(t, "not json", bad.SourceItemID)

	assert.NotNil(t, Set(nil, KeyNum, int64(1)))
}

func TestSetMultipleRender(t *testing.T) {
	r, err := NewTemplateRenderer(DefaultCardTemplate)
	require.Nil(t, err)

	it := &item.Item{SourceItemID: `{"name":"old","num":1}`}
	require.Nil(t, SetMultiple(it, FieldSet{KeyName: "<cups>", KeyNum: int64(3)}, r))
	assert.Contains(t, it.HTML, "&lt;cups&gt;: <strong>3</strong>")

	failing := RendererFunc(func(FieldSet) (string, error) { return "", errors.New("boom") })
	before := *it
	assert.NotNil(t, SetMultiple(it, FieldSet{KeyNum: int64(4)}, failing))
	assert.Equal(t, before, *it)

	_, err = NewTemplateRenderer("{{.name")
	assert.NotNil(t, err)
}

func TestNumOrZero(t *testing.T) {
	cases := []struct {
		fs       FieldSet
		num      int64
		fallback bool
	}{
		{FieldSet{KeyNum: int64(7)}, 7, false},
		{FieldSet{KeyNum: 7}, 7, false},
		{FieldSet{KeyNum: "7"}, 7, false},
		{FieldSet{KeyNum: " -3 "}, -3, false},
		{FieldSet{KeyNum: float64(2)}, 2, false},
		{FieldSet{KeyNum: 2.5}, 0, true},
		{FieldSet{KeyNum: "abc"}, 0, true},
		{FieldSet{KeyNum: nil}, 0, true},
		{FieldSet{KeyNum: true}, 0, true},
		{FieldSet{}, 0, true},
	}
	for _, cs := range cases {
		num, fallback := NumOrZero(cs.fs)
		assert.Equal(t, cs.num, num, "%v", cs.fs)
		assert.Equal(t, cs.fallback, fallback, "%v", cs.fs)
	}
}

func TestItemNum(t *testing.T) {
	num, fallback, err := ItemNum(&item.Item{SourceItemID: `{"num":"abc"}`})
	assert.Nil(t, err)
	assert.True(t, fallback)
	assert.EqualValues(t, 0, num)

	num, fallback, err = ItemNum(&item.Item{SourceItemID: `{"num":12}`})
	assert.Nil(t, err)
	assert.False(t, fallback)
	assert.EqualValues(t, 12, num)

	num, fallback, err = ItemNum(&item.Item{SourceItemID: `{{`})
	assert.True(t, errors.Is(err, ErrMalformedPayload))
	assert.True(t, fallback)
	assert.EqualValues(t, 0, num)
}

func TestName(t *testing.T) {
	assert.Equal(t, "cups", Name(FieldSet{KeyName: "cups"}))
	assert.Equal(t, "", Name(FieldSet{}))
	assert.Equal(t, "12", Name(FieldSet{KeyName: int64(12)}))
	assert.True(t, strings.HasPrefix(DefaultCardTemplate, "<article>"))
}

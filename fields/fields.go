// Package fields stores custom key/value fields inside a timeline item.
//
// The fields are JSON encoded into Item.SourceItemID, the only slot of an item
// this service owns. An item without a payload has no fields, which is not an
// error. Keys the service does not know are kept across a decode/encode cycle.
package fields

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/d0ngw/timeline-counter/item"
	jsoniter "github.com/json-iterator/go"
)

// Well known field names
const (
	KeyName = "name"
	KeyNum  = "num"
)

var (
	// ErrMalformedPayload the payload is not a JSON object
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrKeyNotFound the key is absent from the fields
	ErrKeyNotFound = errors.New("key not found")
)

var codecJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// FieldSet holds decoded fields. Integers are int64, strings are string.
type FieldSet map[string]interface{}

// Clone returns a shallow copy
func (p FieldSet) Clone() FieldSet {
	cp := make(FieldSet, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// Decode parses a payload. An empty payload gives an empty FieldSet.
func Decode(payload string) (FieldSet, error) {
	if strings.TrimSpace(payload) == "" {
		return FieldSet{}, nil
	}
	var raw map[string]interface{}
	if err := codecJSON.UnmarshalFromString(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	fs := make(FieldSet, len(raw))
	for k, v := range raw {
		fs[k] = normalize(v)
	}
	return fs, nil
}

// normalize turns json.Number into int64 when it is integral, float64 otherwise
func normalize(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Encode serializes the fields to the payload representation
func Encode(fs FieldSet) (string, error) {
	if fs == nil {
		fs = FieldSet{}
	}
	return codecJSON.MarshalToString(map[string]interface{}(fs))
}

// FromItem decodes the fields of it
func FromItem(it *item.Item) (FieldSet, error) {
	if it == nil {
		return FieldSet{}, nil
	}
	return Decode(it.SourceItemID)
}

// Get returns the value of key in the fields of it
func Get(it *item.Item, key string) (interface{}, error) {
	fs, err := FromItem(it)
	if err != nil {
		return nil, err
	}
	v, ok := fs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return v, nil
}

// Set sets one field of it
func Set(it *item.Item, key string, value interface{}) error {
	return SetMultiple(it, FieldSet{key: value}, nil)
}

// SetMultiple merges fs into the fields of it and writes the payload back.
// When r is not nil the item html is rendered again from the merged fields.
// Nothing but it is modified.
func SetMultiple(it *item.Item, fs FieldSet, r Renderer) error {
	if it == nil {
		return errors.New("nil item")
	}
	merged, err := FromItem(it)
	if err != nil {
		return err
	}
	for k, v := range fs {
		merged[k] = v
	}
	payload, err := Encode(merged)
	if err != nil {
		return err
	}
	var html string
	if r != nil {
		if html, err = r.Render(merged); err != nil {
			return err
		}
	}
	it.SourceItemID = payload
	if r != nil {
		it.HTML = html
	}
	return nil
}

// NumOrZero is the fallback policy for the counter field: a missing or
// unparseable num reads as 0. fallback reports whether the policy kicked in.
func NumOrZero(fs FieldSet) (num int64, fallback bool) {
	v, ok := fs[KeyNum]
	if !ok {
		return 0, true
	}
	switch n := v.(type) {
	case int64:
		return n, false
	case int:
		return int64(n), false
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
			return int64(n), false
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, false
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, false
		}
	}
	return 0, true
}

// ItemNum reads the counter of it with the NumOrZero policy. A malformed
// payload also reads as 0, the decode error is returned for logging only.
func ItemNum(it *item.Item) (num int64, fallback bool, err error) {
	fs, err := FromItem(it)
	if err != nil {
		return 0, true, err
	}
	num, fallback = NumOrZero(fs)
	return num, fallback, nil
}

// Name returns the label of the fields, "" when absent
func Name(fs FieldSet) string {
	switch v := fs[KeyName].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

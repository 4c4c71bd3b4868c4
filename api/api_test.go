package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/d0ngw/timeline-counter/cache"
	c "github.com/d0ngw/timeline-counter/common"
	"github.com/d0ngw/timeline-counter/counter"
	"github.com/d0ngw/timeline-counter/fields"
	xhttp "github.com/d0ngw/timeline-counter/http"
	"github.com/d0ngw/timeline-counter/item"
	"github.com/d0ngw/timeline-counter/notify"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	cases := map[int]error{
		http.StatusOK:                  nil,
		http.StatusAccepted:            &counter.PersistError{Applied: true, Err: c.ErrTransient},
		http.StatusBadRequest:          notify.ErrInvalidNotification,
		http.StatusNotFound:            fmt.Errorf("item x: %w", c.ErrNotFound),
		http.StatusServiceUnavailable:  fmt.Errorf("%w: busy", counter.ErrContention),
		http.StatusInternalServerError: errors.New("boom"),
	}
	for status, err := range cases {
		assert.Equal(t, status, StatusOf(err), "%v", err)
	}
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(c.ErrTransient))
	assert.Equal(t, http.StatusBadRequest, StatusOf(counter.ErrUnsupportedOperation))
	assert.Equal(t, http.StatusRequestEntityTooLarge, StatusOf(fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10})))
}

func TestBodyTooLarge(t *testing.T) {
	s := newTestServer(t)
	body := `{"collection":"timeline","itemId":"` + strings.Repeat("x", 1<<17) + `"}`
	w := s.do(http.MethodPost, "/notify", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = s.do(http.MethodPost, "/counters", `{"name":"`+strings.Repeat("x", 1<<17)+`","num":1}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, s.store.Len())
}

type testServer struct {
	handler http.Handler
	store   *item.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	store := item.NewMemoryStore()
	co, err := counter.NewCoordinator(cache.NewMemoryCache(0), store, &counter.RetryConfig{MaxAttempts: 100, BackoffInitial: 1, BackoffMax: 2})
	require.Nil(t, err)
	d, err := notify.NewDispatcher(co)
	require.Nil(t, err)
	m, err := counter.NewManager(store, co, nil)
	require.Nil(t, err)

	conf := xhttp.NewConfig("127.0.0.1:0")
	conf.MaxBodyBytes = 1 << 16
	require.Nil(t, NewNotifyHandler(d).Register(conf, "/notify"))
	require.Nil(t, NewCounterHandler(m).Register(conf, "/counters"))
	svc := xhttp.NewService(conf)
	require.Nil(t, svc.Init())
	return &testServer{handler: svc.Handler(), store: store}
}

func (p *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	p.handler.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func (p *testServer) num(t *testing.T, id string) int64 {
	it, err := p.store.Get(context.Background(), id)
	require.Nil(t, err)
	num, _, err := fields.ItemNum(it)
	require.Nil(t, err)
	return num
}

func TestNotifyHandler(t *testing.T) {
	s := newTestServer(t)
	_, err := s.store.Insert(context.Background(), &item.Item{ID: "i1", SourceItemID: `{"name":"cups","num":"7"}`})
	require.Nil(t, err)

	w := s.do(http.MethodPost, "/notify", `{"collection":"timeline","itemId":"i1","userActions":[{"type":"CUSTOM","payload":"increment"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":8`)
	assert.EqualValues(t, 8, s.num(t, "i1"))

	w = s.do(http.MethodPost, "/notify", `{"collection":"timeline","itemId":"i1","userActions":[{"type":"SHARE"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"handled":false`)

	w = s.do(http.MethodPost, "/notify", `{"collection":"timeline","itemId":"nope","userActions":[{"type":"CUSTOM","payload":"reset"}]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/notify", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/notify", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCounterHandler(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/counters", `{"name":"laps","num":2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data counter.Counter `json:"data"`
	}
	require.Nil(t, jsoniter.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID
	require.NotEmpty(t, id)

	w = s.do(http.MethodPost, "/counters/"+id+"/increment", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":3`)

	w = s.do(http.MethodPost, "/counters/"+id+"/double", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/counters/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"num":3`)

	w = s.do(http.MethodPut, "/counters/"+id, `{"name":"laps","num":50}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 50, s.num(t, id))

	w = s.do(http.MethodPut, "/counters/"+id, `{"name":"laps"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/counters/"+id+"/reset", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, s.num(t, id))

	w = s.do(http.MethodDelete, "/counters/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/counters/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/counters", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
